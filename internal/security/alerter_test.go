package security

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestAlerter(t *testing.T) *AuditAlerter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	alerter := NewAuditAlerter(client, "test:alerts")
	if alerter == nil {
		t.Fatalf("expected alerter")
	}
	return alerter
}

func TestAuditAlerterTriggersOnPinFailures(t *testing.T) {
	alerter := newTestAlerter(t)
	var lastTriggered bool
	for i := 0; i < 5; i++ {
		result, err := alerter.Observe("users.verify_pin", "fail", "127.0.0.1")
		if err != nil {
			t.Fatalf("observe: %v", err)
		}
		lastTriggered = result.Triggered
	}
	if !lastTriggered {
		t.Fatalf("expected alert threshold to trigger")
	}
}

func TestAuditAlerterIgnoresUnknownRule(t *testing.T) {
	alerter := newTestAlerter(t)
	result, err := alerter.Observe("users.custom", "success", "127.0.0.1")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if result.Triggered {
		t.Fatalf("unexpected trigger for unknown rule")
	}
}

func TestAuditAlerterNilClientDisabled(t *testing.T) {
	alerter := NewAuditAlerter(nil, "test:alerts")
	result, err := alerter.Observe("users.verify_pin", "fail", "127.0.0.1")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if result.Triggered {
		t.Fatalf("disabled alerter must not trigger")
	}
}
