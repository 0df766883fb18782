package main

import (
	"testing"

	"github.com/spf13/viper"
)

// No proxyctl.yaml exists in the test environment; config must fall through
// to environment variables instead of exiting.
func TestInitConfigWithoutConfigFile(t *testing.T) {
	initConfig()

	viper.Set("vendor.base_url", "http://vendor.example")
	if got := viper.GetString("vendor.base_url"); got != "http://vendor.example" {
		t.Fatalf("viper not usable after env-only init, got %q", got)
	}
}
