// Package influxdb records authentication telemetry in InfluxDB.
//
// Every register, login and bearer-token check produces an auth_events point
// tagged by action, outcome and role. Dashboards use it to spot credential
// stuffing (bursts of invalid_credentials) or clients sending stale tokens
// (token_expired).
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Async write errors are delivered to the SetOnError callback.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteAuthEvent(influxdb.AuthEvent{Action: "login", Outcome: "success", Role: "STUDENT"})
package influxdb
