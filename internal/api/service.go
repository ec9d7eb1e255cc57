package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zombor/splitsy/internal/bill"
	"github.com/zombor/splitsy/internal/scanning"
	"github.com/zombor/splitsy/internal/split"
	"github.com/zombor/splitsy/internal/summary"
)

// defaultParticipants is how many people a new session starts with
const defaultParticipants = 2

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Snapshot is the full state of a bill being split, sent with every request.
// The service never keeps it between requests.
type Snapshot struct {
	Bill         bill.Bill           `json:"bill"`
	Participants []split.Participant `json:"participants"`
	Method       split.Method        `json:"method"`
	Assignments  split.Assignments   `json:"assignments"`
}

// Result is the allocation for a snapshot
type Result struct {
	Bill          bill.Bill           `json:"bill"`
	Participants  []split.Participant `json:"participants"`
	Shares        []split.Share       `json:"shares,omitempty"`
	AssignedTotal float64             `json:"assigned_total"`
}

// SummaryResult is the rendered summary and, when a transport was requested,
// the link that shares it
type SummaryResult struct {
	Text     string `json:"text"`
	ShareURL string `json:"share_url,omitempty"`
}

// Service handles bill operations
type Service struct {
	scanner     scanning.Scanner
	idGenerator bill.IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with UUID IDs and the wall clock
func NewService(scanner scanning.Scanner) *Service {
	return &Service{
		scanner:     scanner,
		idGenerator: bill.UUIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(scanner scanning.Scanner, idGen bill.IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		scanner:     scanner,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// Extract scans a receipt image and normalizes the result into a bill. Every
// failure is returned as *scanning.ExtractionError.
func (s *Service) Extract(ctx context.Context, filename string, data []byte, contentType string) (bill.Bill, error) {
	receiptData, err := s.scanner.ScanReceipt(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		var extractionErr *scanning.ExtractionError
		if !errors.As(err, &extractionErr) {
			err = &scanning.ExtractionError{Cause: err}
		}
		return bill.Bill{}, err
	}
	if receiptData == nil {
		return bill.Bill{}, &scanning.ExtractionError{Cause: fmt.Errorf("no structured result returned")}
	}

	b := s.Normalize(receiptData)
	slog.Info("Extracted receipt",
		"filename", filename,
		"items", len(b.Items),
		"total", b.Total,
	)
	return b, nil
}

// Normalize converts extracted or hand-entered receipt data into a bill
func (s *Service) Normalize(data *scanning.ReceiptData) bill.Bill {
	return bill.Normalize(data.RawItems(), float64(data.Tax), float64(data.Service), s.idGenerator)
}

// NewSession starts a session for b with n default participants. n <= 0
// uses the default of two.
func (s *Service) NewSession(b bill.Bill, n int) Snapshot {
	if n <= 0 {
		n = defaultParticipants
	}
	return snapshotOf(split.NewSession(b, n, s.idGenerator))
}

// Resize changes the participant count of an equal split
func (s *Service) Resize(snap Snapshot, n int) Snapshot {
	session := s.session(snap)
	session.SetParticipantCount(n)
	return snapshotOf(session)
}

// Split recalculates the bill and allocates it across the participants
func (s *Service) Split(snap Snapshot) Result {
	session := s.session(snap)
	result := Result{
		Bill:          session.Bill,
		Participants:  session.Allocate(),
		AssignedTotal: session.Bill.Total,
	}
	if session.Method == split.Itemized {
		result.Shares = session.Breakdown()
		result.AssignedTotal = split.AssignedTotal(session.Bill, session.Participants, session.Assignments)
	}
	return result
}

// Summarize allocates the snapshot and renders the summary message. A
// non-empty transport also produces a share link.
func (s *Service) Summarize(snap Snapshot, opts summary.Options, transport summary.Transport) (*SummaryResult, error) {
	session := s.session(snap)
	people := session.Allocate()
	text := summary.Format(people, session.Bill, session.Method, session.Assignments, opts, s.timeSource.Now())

	result := &SummaryResult{Text: text}
	if transport != "" {
		link, err := summary.ShareURL(transport, text)
		if err != nil {
			return nil, fmt.Errorf("building share link: %w", err)
		}
		result.ShareURL = link
	}
	return result, nil
}

// session rebuilds a session from a snapshot, re-deriving the bill and
// dropping assignments that point at missing items or participants
func (s *Service) session(snap Snapshot) *split.Session {
	session := split.NewSession(snap.Bill, 0, s.idGenerator)
	session.Participants = append([]split.Participant(nil), snap.Participants...)
	session.Method = snap.Method
	session.Assignments = snap.Assignments.PruneItems(session.Bill).Prune(session.Participants)
	return session
}

func snapshotOf(session *split.Session) Snapshot {
	return Snapshot{
		Bill:         session.Bill,
		Participants: session.Participants,
		Method:       session.Method,
		Assignments:  session.Assignments,
	}
}
