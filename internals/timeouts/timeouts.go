package timeouts

import "time"

const (
	// Request bounds one-shot API calls unless api.request_timeout says otherwise.
	Request = 15 * time.Second
	// StubStep is the default pause between simulated agent steps.
	StubStep = 750 * time.Millisecond
	// StubKeepAlive is how often an idle stream gets a comment line.
	StubKeepAlive  = 15 * time.Second
	StubShutdown   = 2 * time.Second
	StubReadHeader = 10 * time.Second
)
