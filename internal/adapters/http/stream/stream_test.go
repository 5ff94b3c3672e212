package stream_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/hotspot/internal/adapters/http/stream"
	"github.com/okian/hotspot/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func dial(srv *httptest.Server) (*websocket.Conn, error) {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	return conn, err
}

func TestHub(t *testing.T) {
	Convey("Given a hub behind a test server", t, func() {
		hub := stream.NewHub()
		srv := httptest.NewServer(hub)
		defer srv.Close()
		defer hub.Close()

		Convey("When a client connects and an event is published", func() {
			conn, err := dial(srv)
			So(err, ShouldBeNil)
			defer conn.Close()
			So(waitFor(func() bool { return hub.Clients() == 1 }), ShouldBeTrue)

			hub.Publish(context.Background(), types.DispatchEvent{
				Type:             "dispatch",
				DispatchID:       "d-1",
				HotspotsDetected: 3,
				AlertsSent:       2,
			})

			Convey("Then the client receives it as JSON", func() {
				var ev types.DispatchEvent
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				So(conn.ReadJSON(&ev), ShouldBeNil)
				So(ev.DispatchID, ShouldEqual, "d-1")
				So(ev.AlertsSent, ShouldEqual, 2)
			})
		})

		Convey("When a client disconnects", func() {
			conn, err := dial(srv)
			So(err, ShouldBeNil)
			So(waitFor(func() bool { return hub.Clients() == 1 }), ShouldBeTrue)
			_ = conn.Close()

			Convey("Then it is removed", func() {
				So(waitFor(func() bool { return hub.Clients() == 0 }), ShouldBeTrue)
			})
		})

		Convey("When publishing with nobody connected", func() {
			So(func() { hub.Publish(context.Background(), types.DispatchEvent{}) }, ShouldNotPanic)
		})
	})

	Convey("Given a closed hub", t, func() {
		hub := stream.NewHub()
		hub.Close()
		srv := httptest.NewServer(hub)
		defer srv.Close()

		Convey("Then new clients are turned away", func() {
			conn, err := dial(srv)
			So(err, ShouldBeNil)
			defer conn.Close()
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, _, err = conn.ReadMessage()
			So(err, ShouldNotBeNil)
			So(hub.Clients(), ShouldEqual, 0)
		})
	})
}
