package jobs

import "time"

// Seed populates the store with a small demo dataset. It is a no-op when any
// jobs already exist, so it is safe to call on every startup of a demo
// session. The boolean reports whether anything was inserted.
func (s *Store) Seed() (bool, error) {
	if len(s.List()) > 0 {
		return false, nil
	}

	now := s.now()
	samples := []Patch{
		{
			Title:    ptr("Launch recap"),
			Status:   ptr(StatusPublished),
			Attempts: ptr(1),
			Tags:     []string{"launch", "product"},
			Content:  ptr("We just launched our auto-poster!"),
		},
		{
			Title:        ptr("Weekly update"),
			Status:       ptr(StatusScheduled),
			ScheduledFor: ptr(now.Add(120 * time.Minute)),
			Tags:         []string{"update"},
			Content:      ptr("Drafting next week's update."),
		},
		{
			Title:        ptr("AI tips"),
			Status:       ptr(StatusFailed),
			ScheduledFor: ptr(now.Add(-180 * time.Minute)),
			Attempts:     ptr(2),
			Tags:         []string{"ai", "tips"},
			Content:      ptr("Sharing AI best practices."),
			ErrorMessage: ptr("LinkedIn API returned 401"),
		},
	}
	createdAgo := []time.Duration{180 * time.Minute, 60 * time.Minute, 240 * time.Minute}

	for i, p := range samples {
		job, err := s.Upsert(p)
		if err != nil {
			return false, err
		}
		// Backdate creation so the demo timeline looks lived-in.
		s.mu.Lock()
		if idx := s.indexOf(job.ID); idx >= 0 {
			s.jobs[idx].CreatedAt = now.Add(-createdAgo[i])
		}
		err = s.persist()
		s.mu.Unlock()
		if err != nil {
			return false, err
		}
	}
	return true, nil
}

func ptr[T any](v T) *T { return &v }
