package digestauth_test

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/momentics/hioload-rpc/digestauth"
	"github.com/momentics/hioload-rpc/frame"
)

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func writeHtdigest(t *testing.T, ha1 string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "htdigest")
	content := "alice:devices:" + ha1 + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckValidResponse(t *testing.T) {
	ha1 := md5hex("alice:devices:s3cret")
	path := writeHtdigest(t, ha1)
	checker, err := digestauth.NewChecker(path, "devices")
	if err != nil {
		t.Fatal(err)
	}

	ha2 := md5hex("RPC.Ping")
	resp := md5hex(ha1 + ":n1:c1:" + ha2)
	f := &frame.Frame{
		Method: "RPC.Ping",
		Auth:   []byte(`{"realm":"devices","username":"alice","nonce":"n1","cnonce":"c1","response":"` + resp + `"}`),
	}

	username, ok, err := checker.Check(f)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || username != "alice" {
		t.Fatalf("expected valid auth for alice, got ok=%v username=%q", ok, username)
	}
}

func TestCheckRejectsWrongResponse(t *testing.T) {
	ha1 := md5hex("alice:devices:s3cret")
	path := writeHtdigest(t, ha1)
	checker, err := digestauth.NewChecker(path, "devices")
	if err != nil {
		t.Fatal(err)
	}

	f := &frame.Frame{
		Method: "RPC.Ping",
		Auth:   []byte(`{"realm":"devices","username":"alice","nonce":"n1","cnonce":"c1","response":"deadbeef"}`),
	}
	_, ok, err := checker.Check(f)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected rejection of wrong response")
	}
}

func TestCheckNoAuthIsNotAnError(t *testing.T) {
	ha1 := md5hex("alice:devices:s3cret")
	path := writeHtdigest(t, ha1)
	checker, err := digestauth.NewChecker(path, "devices")
	if err != nil {
		t.Fatal(err)
	}
	_, ok, err := checker.Check(&frame.Frame{Method: "RPC.Ping"})
	if err != nil || ok {
		t.Fatalf("expected ok=false, err=nil for no-auth frame, got ok=%v err=%v", ok, err)
	}
}

func TestNewCheckerFailsOnMissingFile(t *testing.T) {
	_, err := digestauth.NewChecker(filepath.Join(t.TempDir(), "missing"), "devices")
	if err == nil {
		t.Fatal("expected error opening missing htdigest file")
	}
}

// Check re-reads the credential store on every call; if the file is
// removed after the Checker is constructed, a request carrying an auth
// field must surface that as an error, not as an ordinary ok=false auth
// mismatch (§4.8's "failure to open the credential store" outcome).
func TestCheckFailsWhenStoreBecomesUnreadable(t *testing.T) {
	ha1 := md5hex("alice:devices:s3cret")
	path := writeHtdigest(t, ha1)
	checker, err := digestauth.NewChecker(path, "devices")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	f := &frame.Frame{
		Method: "RPC.Ping",
		Auth:   []byte(`{"realm":"devices","username":"alice","nonce":"n1","cnonce":"c1","response":"deadbeef"}`),
	}
	_, ok, err := checker.Check(f)
	if err == nil {
		t.Fatal("expected an error once the credential store file is gone")
	}
	if ok {
		t.Fatal("expected ok=false alongside the store-open error")
	}
}
