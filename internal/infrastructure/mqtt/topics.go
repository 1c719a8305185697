package mqtt

import "strings"

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "campus"

// Announcement kinds.
const (
	KindNotice = "notice"
	KindEvent  = "event"
)

// Topics builds topic names under a prefix.
//
//	topics := mqtt.NewTopics("campus")
//	topics.Announce(mqtt.KindNotice) // "campus/announce/notice"
type Topics struct {
	prefix string
}

// NewTopics returns a builder for prefix, trimming slashes.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the normalised prefix.
func (t Topics) Prefix() string {
	return t.prefix
}

// Announce returns the topic for announcements of kind.
func (t Topics) Announce(kind string) string {
	return t.prefix + "/announce/" + kind
}

// AllAnnouncements returns the wildcard displays subscribe to.
func (t Topics) AllAnnouncements() string {
	return t.prefix + "/announce/+"
}

// SystemStatus returns the retained online/offline status topic.
func (t Topics) SystemStatus() string {
	return t.prefix + "/system/status"
}
