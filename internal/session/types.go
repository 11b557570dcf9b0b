// Package session defines the conversation session aggregate and the stores
// that persist it between turns.
//
// A Session is loaded at the start of each turn, mutated by the policy layer,
// and replaced wholesale at the end of the turn. The only other persisted
// record is the StagedOutput lease that guards background taskmap enrichment.
package session

import (
	"strings"
	"time"
)

// State is the lifecycle state of a session, independent of the task phase.
type State string

const (
	StateRunning State = "RUNNING"
	StateResume  State = "RESUME"
	StateClosed  State = "CLOSED"
)

// Phase is the current stage of the task-assistance dialogue.
type Phase string

const (
	PhaseDomain     Phase = "DOMAIN"
	PhasePlanning   Phase = "PLANNING"
	PhaseValidating Phase = "VALIDATING"
	PhaseExecuting  Phase = "EXECUTING"
	PhaseClosing    Phase = "CLOSING"
)

// Domain is the task domain the conversation is grounded in. Only the domain
// policy mutates it.
type Domain string

const (
	DomainUnknown Domain = "UNKNOWN"
	DomainCooking Domain = "COOKING"
	DomainDIY     Domain = "DIY"
)

// UserRequest is the user half of a turn.
type UserRequest struct {
	Text    string    `json:"text"`
	Intents []string  `json:"intents,omitempty"`
	Params  []string  `json:"params,omitempty"`
	Time    time.Time `json:"time"`
}

// AgentResponse is the system half of a turn. It is absent until the policy
// layer fills it for the current turn.
type AgentResponse struct {
	Interaction OutputInteraction `json:"interaction"`
	Time        time.Time         `json:"time"`
}

// Turn is one user-utterance/system-response pair.
type Turn struct {
	ID            string         `json:"id"`
	UserRequest   UserRequest    `json:"user_request"`
	AgentResponse *AgentResponse `json:"agent_response,omitempty"`
}

// ScreenFormat selects the client-side layout for a screen response.
type ScreenFormat string

const (
	FormatTextImage     ScreenFormat = "TEXT_IMAGE"
	FormatImageCarousel ScreenFormat = "IMAGE_CAROUSEL"
)

// Image is a single image shown on a screen.
type Image struct {
	Path        string `json:"path"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Screen is the visual part of a system response for screen-enabled clients.
type Screen struct {
	Format       ScreenFormat `json:"format,omitempty"`
	Headline     string       `json:"headline,omitempty"`
	Subheader    string       `json:"subheader,omitempty"`
	Paragraphs   []string     `json:"paragraphs,omitempty"`
	Images       []Image      `json:"images,omitempty"`
	Buttons      []string     `json:"buttons,omitempty"`
	OnClick      []string     `json:"on_click,omitempty"`
	HintText     string       `json:"hint_text,omitempty"`
	Requirements []string     `json:"requirements,omitempty"`
}

// Clone returns a deep copy of the screen. Policies repeat the previous
// screen by copy so a later mutation never rewrites an earlier turn.
func (s *Screen) Clone() *Screen {
	if s == nil {
		return nil
	}
	out := *s
	out.Paragraphs = append([]string(nil), s.Paragraphs...)
	out.Images = append([]Image(nil), s.Images...)
	out.Buttons = append([]string(nil), s.Buttons...)
	out.OnClick = append([]string(nil), s.OnClick...)
	out.Requirements = append([]string(nil), s.Requirements...)
	return &out
}

// TimerState is the lifecycle state of a user timer.
type TimerState string

const (
	TimerRunning TimerState = "RUNNING"
	TimerPaused  TimerState = "PAUSED"
)

// Timer is a user-requested countdown. The session is the record of it;
// the client device rings the actual alarm.
type Timer struct {
	ID         string        `json:"id"`
	Label      string        `json:"label,omitempty"`
	Duration   time.Duration `json:"duration"`
	ExpireTime time.Time     `json:"expire_time"`
	Remaining  time.Duration `json:"remaining,omitempty"`
	State      TimerState    `json:"state"`
}

// Active reports whether the timer still matters to the user: paused, or
// not yet expired.
func (t Timer) Active(now time.Time) bool {
	return t.State == TimerPaused || t.ExpireTime.After(now)
}

// TimerOp is a device-side timer operation requested alongside a response.
type TimerOp string

const (
	TimerCreate TimerOp = "CREATE"
	TimerPause  TimerOp = "PAUSE"
	TimerResume TimerOp = "RESUME"
	TimerCancel TimerOp = "CANCEL"
)

// TimerAction tells the client what to do with its local timer.
type TimerAction struct {
	Op       TimerOp       `json:"op"`
	TimerID  string        `json:"timer_id"`
	Label    string        `json:"label,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// OutputInteraction is the structured system reply for one turn. It is
// created fresh each step.
type OutputInteraction struct {
	SpeechText       string       `json:"speech_text"`
	Screen           *Screen      `json:"screen,omitempty"`
	Reprompt         string       `json:"reprompt,omitempty"`
	Transcript       string       `json:"transcript,omitempty"`
	TimerAction      *TimerAction `json:"timer_action,omitempty"`
	IdleTimeout      int          `json:"idle_timeout,omitempty"`
	PauseInteraction bool         `json:"pause_interaction,omitempty"`
	CloseInteraction bool         `json:"close_interaction,omitempty"`
}

// Step is one execution step of a taskmap. The step ordering is supplied by
// whoever built the taskmap; the execution policy only navigates it.
type Step struct {
	Text     string `json:"text"`
	Details  string `json:"details,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Taskmap is the selected task content: a recipe or DIY project with its
// requirements and ordered steps.
type Taskmap struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Author            string   `json:"author,omitempty"`
	SourceURL         string   `json:"source_url,omitempty"`
	ThumbnailURL      string   `json:"thumbnail_url,omitempty"`
	Description       string   `json:"description,omitempty"`
	VoiceSummary      string   `json:"voice_summary,omitempty"`
	RatingOut100      int      `json:"rating_out_100,omitempty"`
	RatingCount       int      `json:"rating_count,omitempty"`
	Serves            string   `json:"serves,omitempty"`
	Difficulty        string   `json:"difficulty,omitempty"`
	ActiveTimeMinutes int      `json:"active_time_minutes,omitempty"`
	TotalTimeMinutes  int      `json:"total_time_minutes,omitempty"`
	Requirements      []string `json:"requirements,omitempty"`
	Steps             []Step   `json:"steps,omitempty"`
}

// Clone returns a deep copy of the taskmap.
func (t *Taskmap) Clone() *Taskmap {
	if t == nil {
		return nil
	}
	out := *t
	out.Requirements = append([]string(nil), t.Requirements...)
	out.Steps = append([]Step(nil), t.Steps...)
	return &out
}

// TaskState tracks execution progress and per-task flags.
type TaskState struct {
	IndexToNext                int     `json:"index_to_next"`
	Enhanced                   bool    `json:"enhanced,omitempty"`
	RequirementsDisplayed      bool    `json:"requirements_displayed,omitempty"`
	ValidationPage             int     `json:"validation_page,omitempty"`
	ValidationCourtesy         bool    `json:"validation_courtesy,omitempty"`
	ExecutionTutorialDisplayed bool    `json:"execution_tutorial_displayed,omitempty"`
	JokeUttered                bool    `json:"joke_uttered,omitempty"`
	TranscriptSent             bool    `json:"transcript_sent,omitempty"`
	DomainInteractionCounter   int     `json:"domain_interaction_counter,omitempty"`
	UserTimers                 []Timer `json:"user_timers,omitempty"`
}

// Task bundles the dialogue phase with the selected taskmap and its state.
type Task struct {
	Phase   Phase     `json:"phase"`
	Taskmap *Taskmap  `json:"taskmap,omitempty"`
	State   TaskState `json:"state"`
}

// Theme is an editorially curated search theme.
type Theme struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// Category groups related tasks during planning.
type Category struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// TaskSelection holds the candidate set and search context built up during
// the planning dialogue.
type TaskSelection struct {
	Candidates            []Taskmap `json:"candidates,omitempty"`
	ElicitationUtterances []string  `json:"elicitation_utterances,omitempty"`
	Theme                 Theme     `json:"theme,omitempty"`
	Category              Category  `json:"category,omitempty"`
	ResultsPage           int       `json:"results_page,omitempty"`
	PreferencesElicited   bool      `json:"preferences_elicited,omitempty"`
}

// ErrorCounter holds small retry/no-match counters used by phase policies
// for local backoff decisions.
type ErrorCounter struct {
	NoMatchCounter int `json:"no_match_counter,omitempty"`
}

// Session is the conversation aggregate. It is externally owned: loaded at
// turn start and replaced wholesale at turn end.
type Session struct {
	ID                 string        `json:"session_id"`
	Turns              []Turn        `json:"turns"`
	Domain             Domain        `json:"domain"`
	Task               Task          `json:"task"`
	TaskSelection      TaskSelection `json:"task_selection"`
	State              State         `json:"session_state"`
	Greetings          bool          `json:"greetings,omitempty"`
	Headless           bool          `json:"headless,omitempty"`
	ResumeTask         bool          `json:"resume_task,omitempty"`
	HasListPermissions bool          `json:"has_list_permissions,omitempty"`
	ErrorCounter       ErrorCounter  `json:"error_counter"`
}

// New returns an empty session in its initial state.
func New(id string) *Session {
	return &Session{
		ID:     id,
		Domain: DomainUnknown,
		Task:   Task{Phase: PhaseDomain},
		State:  StateRunning,
	}
}

// CurrentTurn returns the last turn, or nil if the session has none. All
// per-step mutation operates on the current turn.
func (s *Session) CurrentTurn() *Turn {
	if len(s.Turns) == 0 {
		return nil
	}
	return &s.Turns[len(s.Turns)-1]
}

// PreviousTurn returns the turn before the current one, or nil.
func (s *Session) PreviousTurn() *Turn {
	if len(s.Turns) < 2 {
		return nil
	}
	return &s.Turns[len(s.Turns)-2]
}

// AddTurn appends a new turn for the given utterance and client intents and
// returns it.
func (s *Session) AddTurn(id, text string, intents []string) *Turn {
	s.Turns = append(s.Turns, Turn{
		ID: id,
		UserRequest: UserRequest{
			Text:    text,
			Intents: append([]string(nil), intents...),
			Time:    time.Now().UTC(),
		},
	})
	return s.CurrentTurn()
}

// LastScreen returns the screen of the previous agent response, or nil.
func (s *Session) LastScreen() *Screen {
	prev := s.PreviousTurn()
	if prev == nil || prev.AgentResponse == nil {
		return nil
	}
	return prev.AgentResponse.Interaction.Screen
}

// HasIntent reports whether the request carries any of the given intents.
func (r *UserRequest) HasIntent(intents ...string) bool {
	for _, want := range intents {
		for _, have := range r.Intents {
			if have == want {
				return true
			}
		}
	}
	return false
}

// HasUtterance reports whether the request text equals any of the given
// utterances, compared case-insensitively after trimming.
func (r *UserRequest) HasUtterance(utterances ...string) bool {
	text := normalize(r.Text)
	for _, u := range utterances {
		if text == normalize(u) {
			return true
		}
	}
	return false
}

// AppendIntents appends intent tags to the request. Tags are append-only;
// nothing in the policy layer ever rewrites earlier tags.
func (r *UserRequest) AppendIntents(intents ...string) {
	r.Intents = append(r.Intents, intents...)
}

// Reset clears the session back to its initial state while keeping the
// identity, the turn history and the one-time greeting flag. Used when a
// returning user starts over instead of resuming.
func (s *Session) Reset() {
	fresh := New(s.ID)
	fresh.Turns = s.Turns
	fresh.Greetings = s.Greetings
	*s = *fresh
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// ConsumeIntents removes the given intents from the request so a re-routed
// policy does not act on them twice.
func (r *UserRequest) ConsumeIntents(intents ...string) {
	kept := r.Intents[:0]
	for _, have := range r.Intents {
		drop := false
		for _, want := range intents {
			if have == want {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, have)
		}
	}
	r.Intents = kept
}
