package model

// AccessView is what a resource view renders for a given actor.
type AccessView string

const (
	ViewContent    AccessView = "content"
	ViewRestricted AccessView = "restricted"
	ViewDenied     AccessView = "denied"
)

// AccessDecision is the rendered outcome of a resource view check.
type AccessDecision struct {
	View       AccessView `json:"view"`
	Allowed    bool       `json:"allowed"`
	Restricted bool       `json:"restricted"`
}

// ActorProfile is the self view: the actor plus what it may do.
type ActorProfile struct {
	Actor        *Actor       `json:"actor"`
	Restricted   bool         `json:"restricted"`
	Capabilities []Capability `json:"capabilities"`
}
