// Package testing forces test mode for binaries exercised from tests. Import
// it for side effects before calling a main function.
package testing

import (
	"os"
	"sync"
)

// EnvVar is the variable app.InTestMode reads.
const EnvVar = "INVOICEGUARD_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(EnvVar) == "" {
			_ = os.Setenv(EnvVar, "1")
		}
	})
}
