package rtc_test

import (
	"encoding/json"
	"testing"

	"campushub/internal/app/rtc"
)

func drainNotification(t *testing.T, s *rtc.Session) rtc.NotificationPayload {
	t.Helper()

	env := recvEvent(t, s)
	if env.Type != rtc.EventNewNotification {
		t.Fatalf("Expected new_notification, got %s", env.Type)
	}

	var payload rtc.NotificationPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("Invalid new_notification payload: %v", err)
	}
	return payload
}

func TestFanoutReachesEveryConnectionOfEveryTarget(t *testing.T) {
	hub := rtc.NewHub(testSecret)
	p := hub.Presence()

	// A has two connections, B has one, C has none.
	aTabOne := rtc.NewSession("conn-a1", hub)
	aTabTwo := rtc.NewSession("conn-a2", hub)
	bTab := rtc.NewSession("conn-b1", hub)
	p.Join("user-a", "conn-a1", aTabOne)
	p.Join("user-a", "conn-a2", aTabTwo)
	p.Join("user-b", "conn-b1", bTab)

	notification := rtc.NotificationPayload{
		ID:        "n-1",
		Title:     "Exam schedule",
		Message:   "Midterms start Monday",
		Kind:      "announcement",
		Timestamp: 1700000000000,
	}

	hub.Fanout([]string{"user-a", "user-b", "user-c"}, notification)

	// Exactly 3 pushes: 2 to A's connections, 1 to B's.
	for _, s := range []*rtc.Session{aTabOne, aTabTwo, bTab} {
		got := drainNotification(t, s)
		if got.ID != "n-1" {
			t.Errorf("Expected notification n-1, got %s", got.ID)
		}
		if got.Kind != "announcement" {
			t.Errorf("Expected kind announcement, got %s", got.Kind)
		}
		expectNoEvent(t, s)
	}
}

func TestFanoutToOfflineTargetsIsSilent(t *testing.T) {
	hub := rtc.NewHub(testSecret)

	// Nobody online. Fanout must not panic or block.
	hub.Fanout([]string{"user-x", "user-y"}, rtc.NotificationPayload{
		ID:    "n-2",
		Title: "Quiet",
		Kind:  "message",
	})
}

func TestFanoutSkipsClosedConnectionsButReachesOthers(t *testing.T) {
	hub := rtc.NewHub(testSecret)
	p := hub.Presence()

	healthy := rtc.NewSession("conn-a1", hub)
	p.Join("user-a", "conn-a1", healthy)

	// A second connection whose outbound queue is saturated: it must not
	// prevent delivery to the healthy one.
	stuck := rtc.NewSession("conn-a2", hub)
	p.Join("user-a", "conn-a2", stuck)
	filler := rtc.NotificationPayload{ID: "filler", Kind: "message"}
	for i := 0; i < 300; i++ {
		hub.Fanout([]string{"user-a"}, filler)
	}

	// Drain healthy completely, then send the frame under test.
	for {
		select {
		case <-healthy.Outbound():
			continue
		default:
		}
		break
	}

	hub.Fanout([]string{"user-a"}, rtc.NotificationPayload{ID: "n-3", Kind: "message"})

	got := drainNotification(t, healthy)
	if got.ID != "n-3" {
		t.Errorf("Expected notification n-3 on healthy connection, got %s", got.ID)
	}
}
