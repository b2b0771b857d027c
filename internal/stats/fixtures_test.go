package stats

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"example.com/intensity/internal/record"
)

var testNow = time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)

func rec(id string, daysAgo, intensity int, tod record.TimeOfDay) record.Record {
	created := testNow.AddDate(0, 0, -daysAgo)
	return record.Record{
		ID:           id,
		UserID:       "user-1",
		Date:         record.DateOf(created),
		TimeOfDay:    tod,
		Intensity:    intensity,
		ExerciseType: "Running",
		CreatedAt:    created,
	}
}

func fakeRecords(faker *gofakeit.Faker, n int) []record.Record {
	types := []string{"Running", "Cycling", "Yoga", "Swimming"}
	out := make([]record.Record, 0, n)
	for i := 0; i < n; i++ {
		created := faker.DateRange(testNow.AddDate(0, 0, -20), testNow)
		out = append(out, record.Record{
			ID:           faker.UUID(),
			UserID:       faker.RandomString([]string{"user-1", "user-2", "user-3"}),
			Date:         record.DateOf(created),
			TimeOfDay:    record.TimesOfDay[faker.IntRange(0, len(record.TimesOfDay)-1)],
			Intensity:    faker.IntRange(record.MinIntensity, record.MaxIntensity),
			ExerciseType: faker.RandomString(types),
			Memo:         faker.Sentence(4),
			CreatedAt:    created,
		})
	}
	return out
}
