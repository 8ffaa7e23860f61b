// Package shared holds helpers used across packages.
//
// testutil provides a capturing slog handler and the processed-data fixture
// used by the services, transport and app tests.
package shared
