package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/Joenasriani/vibedeal/models"
	"github.com/Joenasriani/vibedeal/utils"
)

// Fixed user-facing messages. Transport detail never reaches the
// client; it only goes to the session logger.
const (
	msgLocationRequired = "Delivery Location is required for accurate landed price."
	msgSearchFailed     = "Failed to generate deals. Please check your API Key and try again."
	msgGeoUnsupported   = "Geolocation is not supported by your browser"
	msgGeoDenied        = "Unable to retrieve your location. Please check browser permissions."
)

// LocationFix is the tri-state outcome of a geolocation attempt:
// unsupported capability, denied/failed fix, or a coordinate pair.
type LocationFix struct {
	Supported bool
	Denied    bool
	Latitude  float64
	Longitude float64
}

// DealSession owns the lifecycle of one client's deal search:
// idle -> loading -> success | error, re-submittable from either
// terminal state. It is the single writer of its own state.
type DealSession struct {
	ID      string
	Logger  *zap.Logger
	Fetcher utils.DealFetcher
	Store   *utils.SessionStore // optional

	// notify, when set, receives every snapshot after a mutation.
	notify func(models.SessionSnapshot)

	mu       sync.Mutex
	status   models.SessionStatus
	response *genai.GenerateContentResponse
	errorMsg string
	location string
	features models.OptionalFeatures

	// seq numbers submissions; a completion carrying a stale seq is
	// discarded instead of overwriting newer state.
	seq uint64
}

func NewDealSession(id string, fetcher utils.DealFetcher, store *utils.SessionStore) *DealSession {
	return &DealSession{
		ID:       id,
		Logger:   zap.L().With(zap.String("session_id", id)),
		Fetcher:  fetcher,
		Store:    store,
		status:   models.StatusIdle,
		features: models.DefaultFeatures(),
	}
}

// ResumeDealSession rebuilds a session from a stored snapshot so a
// reconnecting client keeps its id, fields and last result. A session
// stored mid-load comes back idle: its in-flight call died with the
// old connection.
func ResumeDealSession(snap models.SessionSnapshot, fetcher utils.DealFetcher, store *utils.SessionStore) *DealSession {
	s := NewDealSession(snap.ID, fetcher, store)
	s.status = snap.Status
	s.errorMsg = snap.ErrorMessage
	s.location = snap.Location
	s.features = snap.Features

	if len(snap.Raw) > 0 {
		var resp genai.GenerateContentResponse
		if err := json.Unmarshal(snap.Raw, &resp); err != nil {
			s.Logger.Warn("Failed to revive stored response", zap.Error(err))
		} else {
			s.response = &resp
		}
	}
	if s.status == models.StatusLoading {
		s.status = models.StatusIdle
	}

	s.Logger.Info("Resumed deal session", zap.String("status", string(s.status)))
	return s
}

// SetNotify registers the callback pushed after every state change.
func (s *DealSession) SetNotify(fn func(models.SessionSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = fn
}

// Submit runs one full search lifecycle synchronously. Validation
// failures transition straight to error without touching the fetcher;
// otherwise the session loads, issues exactly one fetch, and lands in
// success or error. A submission superseded by a newer one discards
// its completion.
func (s *DealSession) Submit(ctx context.Context, params models.SearchParams) models.SessionSnapshot {
	s.mu.Lock()

	if strings.TrimSpace(params.DeliveryLocation) == "" {
		// The failed submit still supersedes any in-flight search;
		// without the bump a slow completion would overwrite this
		// error with its stale result.
		s.seq++
		s.status = models.StatusError
		s.errorMsg = msgLocationRequired
		s.response = nil
		return s.commit(s.snapshotLocked())
	}

	s.seq++
	seq := s.seq
	s.status = models.StatusLoading
	s.errorMsg = ""
	s.response = nil
	s.location = params.DeliveryLocation
	s.features = params.OptionalFeatures
	s.Logger.Info("Submitting deal search",
		zap.String("product_query", params.ProductQuery),
		zap.Strings("enabled_features", params.OptionalFeatures.Enabled()))
	loading := s.snapshotLocked()
	s.commit(loading)

	resp, err := s.Fetcher.FetchDeals(ctx, params)

	s.mu.Lock()
	if seq != s.seq {
		// A newer submission took over while this one was in
		// flight; its result must not overwrite newer state.
		s.Logger.Debug("Discarding stale search completion",
			zap.Uint64("completed_seq", seq),
			zap.Uint64("current_seq", s.seq))
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}

	if err != nil {
		s.Logger.Error("Deal search failed", zap.Error(err))
		s.status = models.StatusError
		s.errorMsg = msgSearchFailed
		s.response = nil
		return s.commit(s.snapshotLocked())
	}

	s.status = models.StatusSuccess
	s.errorMsg = ""
	s.response = resp
	snap := s.commit(s.snapshotLocked())

	if s.Store != nil {
		if err := s.Store.RecordSearch(ctx, params); err != nil {
			s.Logger.Warn("Failed to record search history", zap.Error(err))
		}
	}
	return snap
}

// UseCurrentLocation applies a geolocation outcome. A successful fix
// only rewrites the location field, five decimal places per axis; it
// never transitions the lifecycle. Unsupported or denied fixes land
// the session in error with a location-specific message and leave the
// field untouched.
func (s *DealSession) UseCurrentLocation(fix LocationFix) models.SessionSnapshot {
	s.mu.Lock()

	switch {
	case !fix.Supported:
		s.Logger.Warn("Geolocation unavailable on client")
		s.status = models.StatusError
		s.errorMsg = msgGeoUnsupported
		s.response = nil
	case fix.Denied:
		s.Logger.Warn("Geolocation fix denied")
		s.status = models.StatusError
		s.errorMsg = msgGeoDenied
		s.response = nil
	default:
		s.location = fmt.Sprintf("%.5f, %.5f", fix.Latitude, fix.Longitude)
	}

	return s.commit(s.snapshotLocked())
}

// ToggleFeature flips one optional-feature toggle. Unknown keys are a
// logged no-op. No lifecycle transition happens either way.
func (s *DealSession) ToggleFeature(key string) models.SessionSnapshot {
	s.mu.Lock()

	if !s.features.Toggle(key) {
		s.Logger.Warn("Unknown feature toggle", zap.String("key", key))
	}

	return s.commit(s.snapshotLocked())
}

// Snapshot returns the current renderable state.
func (s *DealSession) Snapshot() models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Status reports the current lifecycle state.
func (s *DealSession) Status() models.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Response returns the stored raw generate response, exactly as the
// fetcher resolved it, or nil outside the success state.
func (s *DealSession) Response() *genai.GenerateContentResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.response
}

// Location returns the live location field value.
func (s *DealSession) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location
}

// Features returns the current toggle mapping.
func (s *DealSession) Features() models.OptionalFeatures {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.features
}

// ErrorMessage returns the user-facing error text, empty outside the
// error state.
func (s *DealSession) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorMsg
}

func (s *DealSession) snapshotLocked() models.SessionSnapshot {
	snap := models.SessionSnapshot{
		ID:           s.ID,
		Status:       s.status,
		ErrorMessage: s.errorMsg,
		Location:     s.location,
		Features:     s.features,
		UpdatedAt:    time.Now(),
	}

	if s.response != nil {
		snap.NarrativeMarkdown = utils.NarrativeText(s.response)
		snap.NarrativeHTML = utils.RenderNarrative(snap.NarrativeMarkdown)
		snap.Citations = utils.ExtractCitations(s.response)
		if raw, err := json.Marshal(s.response); err == nil {
			snap.Raw = raw
		}
	}
	return snap
}

// commit releases the lock, persists the snapshot and pushes it to
// the registered listener. Callers must hold s.mu.
func (s *DealSession) commit(snap models.SessionSnapshot) models.SessionSnapshot {
	notify := s.notify
	s.mu.Unlock()

	if s.Store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.Store.SaveSnapshot(ctx, snap); err != nil {
			s.Logger.Warn("Failed to persist session snapshot", zap.Error(err))
		}
		cancel()
	}
	if notify != nil {
		notify(snap)
	}
	return snap
}
