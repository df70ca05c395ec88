package analyzer

import "github.com/wagiedev/analyzer-client-go/internal/config"

// Channel is one duplex connection to the server that supports half-close.
type Channel = config.Channel

// Dialer opens Channels. The default implementation dials TCP.
// Custom dialers can be injected via WithDialer.
type Dialer = config.Dialer
