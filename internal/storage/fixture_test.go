package storage

import (
	"time"

	"github.com/sandeepkv93/wedplan/internal/model"
)

func fixtureTimeline() model.Timeline {
	wedding := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	return model.Timeline{
		WeddingDate: wedding,
		Template:    "standard",
		Entries: []model.Entry{
			{
				ID:                "e-venue",
				Title:             "Book venue",
				Description:       "Sign the contract",
				Date:              wedding.AddDate(0, 0, -365),
				DaysBeforeWedding: 365,
				CategoryID:        "venue",
				CategoryColor:     "#8B5CF6",
				Tasks: []model.Task{
					{ID: "t-shortlist", Name: "Shortlist venues", Completed: true},
					{ID: "t-visit", Name: "Schedule viewings", Skipped: true},
					{ID: "t-deposit", Name: "Pay venue deposit"},
				},
			},
			{
				ID:                "e-fitting",
				Title:             "Dress fitting",
				Date:              wedding.AddDate(0, 0, -45),
				DaysBeforeWedding: 45,
				CategoryID:        "planning",
				CategoryColor:     "#6B7280",
				IsCompleted:       true,
				IsCustom:          true,
			},
		},
	}
}
