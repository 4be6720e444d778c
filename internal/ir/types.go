package ir

// DefKey identifies a fetchable definition.
//
// An empty Def means the identifier is absent. Repo and Rev are always
// copied verbatim from the caller and are never normalised.
type DefKey struct {
	Repo string `json:"repo"`
	Rev  string `json:"rev"`
	Def  string `json:"def"`
}

// IsZero reports whether no component of the key is set.
func (k DefKey) IsZero() bool {
	return k.Repo == "" && k.Rev == "" && k.Def == ""
}

// Def is the store's record for one DefKey: the resolved definition or the
// error that prevented resolving it.
type Def struct {
	Key       DefKey    `json:"key"`
	Name      string    `json:"name,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	File      string    `json:"file,omitempty"`
	StartLine int64     `json:"start_line,omitempty"`
	EndLine   int64     `json:"end_line,omitempty"`
	DocHTML   string    `json:"doc_html,omitempty"`
	Error     *DefError `json:"error,omitempty"`
}

// Failed reports whether the record carries a non-empty error.
func (d *Def) Failed() bool {
	return d != nil && !d.Error.IsZero()
}

// DefError is a per-record fetch error. Status is an HTTP status code when
// the fetch layer knows one, zero otherwise.
type DefError struct {
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
}

// IsZero reports whether e is nil or carries neither a status nor a message.
func (e *DefError) IsZero() bool {
	return e == nil || (e.Status == 0 && e.Message == "")
}

func (e *DefError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// WantDef asks the fetch layer to resolve Key.
//
// It is sent fire-and-forget; the answer arrives later as a store change.
// ID correlates the request with fetch-log rows and log lines.
type WantDef struct {
	ID  string `json:"id"`
	Key DefKey `json:"key"`
}
