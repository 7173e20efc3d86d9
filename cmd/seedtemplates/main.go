package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"campaigner/internal/config"
	"campaigner/internal/logging"
	"campaigner/internal/store"
	"campaigner/internal/store/pg"
	"campaigner/internal/util"
)

// Seeds the default three-stage recruitment sequence. Safe to re-run; edits
// made through the API are overwritten.
func main() {
	_ = godotenv.Load()

	cfg := config.LoadSeeder()
	logging.Init("seedtemplates", cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := pg.NewPool(ctx, cfg.DBDSN, pg.PoolOptions{})
	if err != nil {
		slog.Error("seeder db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	st := pg.New(db)

	now := util.NowUTC()
	for _, t := range defaultTemplates() {
		t.Now = now
		if err := st.UpsertTemplate(ctx, t); err != nil {
			slog.Error("template seed failed", "err", err, "sequence", t.Sequence)
			os.Exit(1)
		}
		slog.Info("template seeded", "sequence", t.Sequence, "delay", t.Delay)
	}
}

func defaultTemplates() []store.TemplateUpsert {
	return []store.TemplateUpsert{
		{
			Sequence: 1,
			Subject:  "Welcome to Our Recruitment Process - {candidate_name}",
			Body: `Hi {candidate_name},

Thank you for your interest in the {position} position at our company!

We're excited to move forward with your application. This email confirms that we've received your application and our team will be reviewing it shortly.

What's next:
- Our hiring team will review your application
- We'll reach out within the next few days with updates
- Please feel free to reply if you have any questions

Best regards,
The Hiring Team`,
			Delay: 0,
		},
		{
			Sequence: 2,
			Subject:  "Application Update - Next Steps for {candidate_name}",
			Body: `Hi {candidate_name},

I hope this email finds you well!

We've completed our initial review of your application for the {position} role, and we're impressed with your background.

Next steps:
- We'd like to schedule a brief phone screening
- Please reply with your availability for this week
- The call will take approximately 30 minutes

We're looking forward to learning more about you and discussing how you might fit into our team.

Best regards,
The Hiring Team`,
			Delay: 48 * time.Hour,
		},
		{
			Sequence: 3,
			Subject:  "Final Steps - {position} Opportunity",
			Body: `Hi {candidate_name},

Thank you for the great conversation during our phone screening!

We're moving to the final stages of our process for the {position} role. Based on our discussion, we believe you could be a great fit for our team.

Final steps:
- Technical interview/presentation (1 hour)
- Meet with team members (30 minutes)
- Final decision within 48 hours after the interview

Please let us know your availability for next week, and we'll coordinate the schedule.

Excited to continue this process with you!

Best regards,
The Hiring Team`,
			Delay: 120 * time.Hour,
		},
	}
}
