package wschannel_test

import (
	"testing"

	"github.com/momentics/hioload-rpc/config"
	"github.com/momentics/hioload-rpc/wschannel"
)

func TestFactoryDialBuildsUnconnectedPersistentChannel(t *testing.T) {
	f := wschannel.NewFactory(config.Default().WS, nil)

	ch, err := f.Dial("ws://example.invalid:8080/rpc", nil)
	if err != nil {
		t.Fatalf("Dial should not itself attempt a network connection: %v", err)
	}
	if ch.Type() != "ws" {
		t.Fatalf("expected type ws, got %s", ch.Type())
	}
	if !ch.Persistent() {
		t.Fatal("expected an on-demand outbound channel to be persistent (survives reconnect)")
	}
	if ch.BroadcastEnabled() {
		t.Fatal("expected an on-demand outbound channel to be ineligible for broadcast")
	}
}

func TestFactoryDialRewritesHTTPSchemeToWebSocket(t *testing.T) {
	f := wschannel.NewFactory(config.Default().WS, nil)

	ch, err := f.Dial("http://example.invalid:8080/rpc", nil)
	if err != nil {
		t.Fatal(err)
	}
	if ch.Info() != "ws://example.invalid:8080/rpc" {
		t.Fatalf("expected http destination rewritten to ws scheme, got %s", ch.Info())
	}

	chTLS, err := f.Dial("https://example.invalid:8443/rpc", nil)
	if err != nil {
		t.Fatal(err)
	}
	if chTLS.Info() != "wss://example.invalid:8443/rpc" {
		t.Fatalf("expected https destination rewritten to wss scheme, got %s", chTLS.Info())
	}
}
