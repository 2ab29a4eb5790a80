// Package service ties the scraper, the record store and the snapshot
// history together: refresh one student, refresh everyone, rank the result.
package service

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aravhawk/openrank/internal/history"
	"github.com/aravhawk/openrank/internal/scrapers/homeaccess"
	"github.com/aravhawk/openrank/internal/store"
	"github.com/aravhawk/openrank/internal/telemetry"
)

const (
	report_refresh_student = "service.refresh-student"
	report_refresh_all     = "service.refresh-all"
	report_push_history    = "service.push-history"
)

// bulk refresh scrapes this many students at a time
const refreshWorkers = 4

// TranscriptFetcher is the scraper as the service sees it, narrow enough to
// swap in a fake for tests.
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, district, username, password string) (homeaccess.Transcript, error)
}

type Service struct {
	store   store.Store
	scraper TranscriptFetcher
	// history is optional, nil disables snapshot recording
	history *history.Store
	tel     telemetry.API
	now     func() time.Time
}

func NewService(st store.Store, scraper TranscriptFetcher, hist *history.Store, tel telemetry.API) *Service {
	return &Service{
		store:   st,
		scraper: scraper,
		history: hist,
		tel:     telemetry.NewScopedAPI("service", tel),
		now:     time.Now,
	}
}

// RefreshStudent scrapes a fresh GPA and persists the updated record. On any
// scrape failure the stored record is left exactly as it was, so a student
// with a previously fetched GPA never loses it to a flaky portal.
func (s *Service) RefreshStudent(ctx context.Context, district, username, password, displayName string) (store.StudentRecord, error) {
	transcript, err := s.scraper.FetchTranscript(ctx, district, username, password)
	if err != nil {
		s.tel.ReportWarning(report_refresh_student, err, username)
		return store.StudentRecord{}, err
	}

	existing, _, err := s.store.Get(ctx, username)
	if err != nil {
		return store.StudentRecord{}, err
	}

	now := s.now().UTC()
	gpa := transcript.GPA
	record := store.StudentRecord{
		Username:    username,
		District:    district,
		Password:    password,
		Name:        firstNonEmpty(displayName, transcript.StudentName, existing.Name, username),
		GPA:         &gpa,
		LastUpdated: &now,
	}
	err = s.store.Upsert(ctx, record)
	if err != nil {
		s.tel.ReportBroken(report_refresh_student, err, username)
		return store.StudentRecord{}, err
	}

	if s.history != nil {
		err = s.history.Push(ctx, username, gpa, now)
		if err != nil {
			// the record is already saved, a lost snapshot is not fatal
			s.tel.ReportWarning(report_push_history, err, username)
		}
	}

	return record, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Failure is one student a bulk refresh could not update.
type Failure struct {
	Username string
	Err      error
}

// Report sums up a bulk refresh.
type Report struct {
	Succeeded []string
	Failed    []Failure
}

// RefreshAll re-scrapes every stored student with a bounded worker pool.
// Individual failures are collected, never fatal, and never touch that
// student's stored record. The leaderboard keeps reading the store, so its
// ordering does not depend on which refresh finished first.
func (s *Service) RefreshAll(ctx context.Context) (Report, error) {
	students, err := s.store.All(ctx)
	if err != nil {
		s.tel.ReportBroken(report_refresh_all, err)
		return Report{}, err
	}

	var mu sync.Mutex
	report := Report{}

	jobs := make(chan store.StudentRecord)
	wg := sync.WaitGroup{}
	for i := 0; i < refreshWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for student := range jobs {
				_, err := s.RefreshStudent(ctx, student.District, student.Username, student.Password, student.Name)

				mu.Lock()
				if err != nil {
					report.Failed = append(report.Failed, Failure{
						Username: student.Username,
						Err:      err,
					})
				} else {
					report.Succeeded = append(report.Succeeded, student.Username)
				}
				mu.Unlock()
			}
		}()
	}

	for _, student := range students {
		jobs <- student
	}
	close(jobs)
	wg.Wait()

	slices.Sort(report.Succeeded)
	slices.SortFunc(report.Failed, func(a, b Failure) int {
		return cmp.Compare(a.Username, b.Username)
	})

	s.tel.ReportCount(report_refresh_all, int64(len(report.Succeeded)))
	return report, nil
}

// Leaderboard returns every stored student ranked by GPA descending.
// Students without a fetched GPA sort last; username breaks ties so the
// ordering is stable across refreshes.
func (s *Service) Leaderboard(ctx context.Context) ([]store.StudentRecord, error) {
	students, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(students, func(a, b store.StudentRecord) int {
		switch {
		case a.GPA == nil && b.GPA == nil:
			return cmp.Compare(a.Username, b.Username)
		case a.GPA == nil:
			return 1
		case b.GPA == nil:
			return -1
		}
		if c := cmp.Compare(*b.GPA, *a.GPA); c != 0 {
			return c
		}
		return cmp.Compare(a.Username, b.Username)
	})
	return students, nil
}

// UserMessage maps a refresh failure onto a short message safe to show to
// users; anything unclassified stays generic so portal markup or internal
// detail never leaks into a page.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, homeaccess.ErrInvalidCredentials):
		return "Please provide both username and password."
	case errors.Is(err, homeaccess.ErrUnknownDistrict):
		return "That school district is not supported."
	case errors.Is(err, homeaccess.ErrAuthFailed):
		return "The portal rejected those credentials. Please try again."
	case errors.Is(err, homeaccess.ErrNetwork):
		return "Could not reach the school portal. Please try again later."
	case errors.Is(err, homeaccess.ErrParse):
		return "Could not find a weighted cumulative GPA on the transcript."
	}
	return "Something went wrong while refreshing the GPA."
}
