//go:build !cgo

package history

import (
	"context"
	"fmt"
)

var errNoCGO = fmt.Errorf("history: this binary was built without CGO support; rebuild with CGO_ENABLED=1")

// openEmbedded returns an error in non-CGO builds. The embedded Dolt engine
// requires CGO; server mode works without it.
func openEmbedded(_ context.Context, _ *Config) (*Store, error) {
	return nil, fmt.Errorf("embedded history requires CGO: %w (or connect to a dolt sql-server with server mode)", errNoCGO)
}
