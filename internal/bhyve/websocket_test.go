package bhyve

import (
	"context"
	"sync"
	"testing"
	"time"
)

func Test_SinceLastEvent(t *testing.T) {
	client := newTestClient(t, "https://api.example.com")

	client.markEventReceived()

	if since := client.sinceLastEvent(); since > time.Minute {
		t.Errorf("sinceLastEvent() = %v right after an event", since)
	}

	// concurrent marks and reads must not corrupt the timestamp
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()

			client.markEventReceived()
		}()

		go func() {
			defer wg.Done()

			if since := client.sinceLastEvent(); since < 0 || since > time.Minute {
				t.Errorf("sinceLastEvent() = %v during concurrent updates", since)
			}
		}()
	}

	wg.Wait()
}

func Test_WatchdogStopsAfterReconnect(t *testing.T) {
	client := newTestClient(t, "https://api.example.com")

	// a reconnect bumps the epoch, a watchdog of the previous connection
	// has to stop instead of resetting the replaced connection again
	staleEpoch := client.connEpoch.Add(1) - 1

	done := make(chan struct{})

	go func() {
		client.lastEventReceivedWatchdog(context.Background(), staleEpoch, time.Hour, 10*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watchdog of a replaced connection kept running")
	}
}

func Test_WatchdogDisabled(t *testing.T) {
	client := newTestClient(t, "https://api.example.com")

	done := make(chan struct{})

	go func() {
		client.lastEventReceivedWatchdog(context.Background(), client.connEpoch.Load(), 0, time.Second)
		client.lastEventReceivedWatchdog(context.Background(), client.connEpoch.Load(), time.Hour, 0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchdog without max age or check interval should return immediately")
	}
}
