// Package action turns free-form model replies into executable browser actions.
package action

import "fmt"

type Direction string

const (
	Back    Direction = "back"
	Forward Direction = "forward"
	Reload  Direction = "reload"
)

// Action is one decision parsed from a model reply. The set of implementations
// is closed: only the types in this package satisfy it.
type Action interface {
	fmt.Stringer
	action()
}

type Navigate struct {
	URL string
}

type Click struct {
	ID int
}

type Input struct {
	ID   int
	Text string
}

type KeyPress struct {
	Key string
}

type History struct {
	Direction Direction
}

// Reachout identifies a contact tracked by the reachout service.
type Reachout struct {
	Email    string `json:"email"`
	Keyword  string `json:"keyword"`
	Question string `json:"question"`
	Name     string `json:"name"`
}

type RecordReachout struct {
	Reachout
}

type DeleteReachout struct {
	Reachout
}

type RecordResponse struct {
	Reachout
	Response string
}

// FinalAnswer ends the loop; Text is the reply returned to the caller.
type FinalAnswer struct {
	Text string
}

func (Navigate) action()       {}
func (Click) action()          {}
func (Input) action()          {}
func (KeyPress) action()       {}
func (History) action()        {}
func (RecordReachout) action() {}
func (DeleteReachout) action() {}
func (RecordResponse) action() {}
func (FinalAnswer) action()    {}

func (a Navigate) String() string { return fmt.Sprintf("navigate %s", a.URL) }
func (a Click) String() string    { return fmt.Sprintf("click [%d]", a.ID) }
func (a Input) String() string    { return fmt.Sprintf("input [%d] %q", a.ID, a.Text) }
func (a KeyPress) String() string { return fmt.Sprintf("keyboard %s", a.Key) }
func (a History) String() string  { return fmt.Sprintf("navigation %s", a.Direction) }

func (a RecordReachout) String() string {
	return fmt.Sprintf("record reachout name=%q email=%q", a.Name, a.Email)
}

func (a DeleteReachout) String() string {
	return fmt.Sprintf("delete reachout name=%q email=%q", a.Name, a.Email)
}

func (a RecordResponse) String() string {
	return fmt.Sprintf("record response name=%q email=%q", a.Name, a.Email)
}

func (a FinalAnswer) String() string { return "final answer" }
