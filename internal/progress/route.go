// Package progress tracks a participant's position in the fixed, linear
// sequence of experiment pages and decides where they may navigate next.
//
// A Ledger holds one RouteEntry per page in canonical order. Query methods on
// Ledger are pure; every mutation goes through a Tracker, which owns the
// ledger for one participant session and persists it after each change.
// Unknown routes never produce errors: queries fall back to the route they
// were given and mutations become logged no-ops.
package progress

// StorageKey is the key the ledger is persisted under.
const StorageKey = "ccgRouteStates"

// Canonical experiment routes, in order.
const (
	RouteWelcome            = "welcome"
	RouteScreening          = "screening"
	RouteComprehensionIntro = "comprehension_intro"
	RouteGameIntro          = "game_intro"
	RouteGameReady          = "game_ready"
	RouteGamePlay           = "game_play"
	RouteGameEnd            = "game_end"
	RoutePostGameSurvey     = "post-game_survey"
	RouteExit               = "exit"
)

// RouteEntry is one page of the experiment and the participant's standing
// on it.
type RouteEntry struct {
	// Route is the page identifier and the sole lookup key.
	Route string `json:"route" yaml:"route"`

	// Permitted is true when the participant may navigate to the page.
	Permitted bool `json:"permitted" yaml:"permitted"`

	// Required marks pages the completion-seeking policies may not skip.
	Required bool `json:"required" yaml:"required"`

	// Completed is true once the participant has finished the page.
	Completed bool `json:"completed" yaml:"completed"`

	// RevisitAfterCompleted keeps a completed page navigable. When false a
	// completed page is sealed.
	RevisitAfterCompleted bool `json:"revisitAfterCompleted" yaml:"revisitAfterCompleted"`
}

// Navigable reports whether the participant may currently view the page:
// permitted, and either not yet completed or open for revisits.
func (e RouteEntry) Navigable() bool {
	return e.Permitted && (!e.Completed || e.RevisitAfterCompleted)
}

// DefaultRoutes returns the canonical nine-page route table. Only the
// welcome page starts permitted.
func DefaultRoutes() []RouteEntry {
	return []RouteEntry{
		{Route: RouteWelcome, Permitted: true, Required: true, RevisitAfterCompleted: true},
		{Route: RouteScreening, Required: true},
		{Route: RouteComprehensionIntro, Required: true, RevisitAfterCompleted: true},
		{Route: RouteGameIntro, Required: true, RevisitAfterCompleted: true},
		{Route: RouteGameReady, Required: true},
		{Route: RouteGamePlay, Required: true},
		{Route: RouteGameEnd, Required: true},
		{Route: RoutePostGameSurvey, Required: true, RevisitAfterCompleted: true},
		{Route: RouteExit, Required: true, RevisitAfterCompleted: true},
	}
}
