package app

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"

	"lptmon/pkg/monitor"
	"lptmon/pkg/mqtt"
	"lptmon/pkg/pins"

	"github.com/womat/debug"
)

// runMonitor samples the port until ctx is cancelled. Events which don't fit
// into the buffer are dropped and counted, the polling loop never waits for a consumer.
// A hardware failure signals shutdown.
func (app *App) runMonitor(ctx context.Context) {
	defer close(app.events)

	err := app.monitor.Run(ctx, func(e monitor.Event) {
		select {
		case app.events <- e:
		default:
			if n := atomic.AddUint64(&app.dropped, 1); n == 1 || n%100 == 0 {
				debug.ErrorLog.Printf("event buffer full, %d events dropped", n)
			}
		}
	})

	if err != nil {
		debug.ErrorLog.Printf("monitor of %s stopped: %v", app.desc.Name, err)
		close(app.shutdown)
	}
}

// publishEvents sends each change event to <topic>/<pin> and, once the buffer
// is drained, the snapshot to <topic>/snapshot.
func (app *App) publishEvents() {
	topic := strings.TrimSuffix(app.config.MQTT.Topic, "/")

	for e := range app.events {
		debug.DebugLog.Printf("%s %v", app.desc.Name, e)

		if !app.mqtt.Connected() || topic == "" {
			continue
		}

		b, err := json.Marshal(e)
		if err != nil {
			debug.ErrorLog.Printf("can't marshal event: %v", err)
			continue
		}
		app.mqtt.C <- mqtt.Message{Topic: topic + "/" + e.Name, Payload: b, Retained: true}

		if len(app.events) > 0 {
			continue
		}

		if b, err = json.Marshal(app.monitor.Snapshot()); err != nil {
			debug.ErrorLog.Printf("can't marshal snapshot: %v", err)
			continue
		}
		app.mqtt.C <- mqtt.Message{Topic: topic + "/snapshot", Payload: b, Retained: true}
	}
}

// setTopic is the topic prefix of pin write requests, empty if mqtt has no topic.
func (app *App) setTopic() string {
	topic := strings.TrimSuffix(app.config.MQTT.Topic, "/")
	if topic == "" {
		return ""
	}
	return topic + "/set/"
}

// handleSetRequest drives the pin of a request on <topic>/set/<pin>,
// the payload is the requested state (on|off|1|0|true|false).
func (app *App) handleSetRequest(msg mqtt.Message) {
	name := strings.TrimPrefix(msg.Topic, app.setTopic())

	asserted, err := pins.ParseState(string(msg.Payload))
	if err != nil {
		debug.ErrorLog.Printf("mqtt request %v: %v", msg.Topic, err)
		return
	}

	op, err := app.PinOperation(name)
	if err != nil {
		debug.ErrorLog.Printf("mqtt request %v: %v", msg.Topic, err)
		return
	}

	if err = app.Execute(context.Background(), Request{Operation: op, Pin: name, Asserted: asserted}); err != nil {
		debug.ErrorLog.Printf("mqtt request %v: %v", msg.Topic, err)
		return
	}

	debug.InfoLog.Printf("mqtt request: %s = %s", name, pins.FormatState(asserted))
}
