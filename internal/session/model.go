package session

import (
	"time"

	"github.com/google/uuid"
)

// Wizard holds the state of the three-step guided flow: select, confirm,
// view results.
type Wizard struct {
	Selected     []string `json:"selected"`
	HasSelection bool     `json:"has_selection"`
	Confirmed    bool     `json:"confirmed"`
}

// Session is the per-user state carried between requests. It is loaded by
// Manager.Middleware and handed to handlers explicitly.
type Session struct {
	ID uuid.UUID `json:"id" db:"id"`

	Username      string `json:"username,omitempty" db:"username"`
	Authenticated bool   `json:"authenticated" db:"authenticated"`

	// Selection saved from the symptom page, read by the results page.
	Symptoms    []string `json:"symptoms" db:"symptoms"`
	HasSymptoms bool     `json:"has_symptoms" db:"has_symptoms"`

	Wizard Wizard `json:"wizard" db:"wizard"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	persisted bool
}

// New returns an empty, not yet persisted session.
func New() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New(),
		Symptoms:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Persisted reports whether the session has been saved at least once.
func (s *Session) Persisted() bool { return s.persisted }

// Login marks the session as authenticated for username.
func (s *Session) Login(username string) {
	s.Username = username
	s.Authenticated = true
}

// Logout drops authentication but keeps saved selections.
func (s *Session) Logout() {
	s.Username = ""
	s.Authenticated = false
}

// SaveSymptoms records the symptom-page selection.
func (s *Session) SaveSymptoms(symptoms []string) {
	s.Symptoms = Dedupe(symptoms)
	s.HasSymptoms = true
}

// SelectWizardSymptoms completes wizard step one. A new selection has to be
// confirmed again.
func (s *Session) SelectWizardSymptoms(symptoms []string) {
	s.Wizard = Wizard{Selected: Dedupe(symptoms), HasSelection: true}
}

// ConfirmWizard completes wizard step two.
func (s *Session) ConfirmWizard() error {
	if !s.Wizard.HasSelection {
		return ErrNoWizardSelection
	}
	s.Wizard.Confirmed = true
	return nil
}

// WizardResultSymptoms returns the confirmed selection for step three.
func (s *Session) WizardResultSymptoms() ([]string, error) {
	if !s.Wizard.Confirmed {
		return nil, ErrWizardNotConfirmed
	}
	return s.Wizard.Selected, nil
}

// Dedupe drops repeated entries and keeps first positions.
func Dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
