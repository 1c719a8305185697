// Package mqtt publishes campus announcements to an MQTT broker.
//
// Digital signage and lobby displays subscribe to the announcement topics to
// show new notices and events without polling the HTTP API. The portal only
// publishes; it never consumes from the broker.
//
// # Topics
//
//	{prefix}/announce/notice   new notices (retained: false)
//	{prefix}/announce/event    new events
//	{prefix}/system/status     online/offline status (retained, also the LWT)
//
// The prefix defaults to "campus".
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Announce(mqtt.KindNotice, notice)
package mqtt
