package minimqtt

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Topic errors.
var (
	ErrInvalidTopicName   = fmt.Errorf("%w: invalid topic name", ErrConfiguration)
	ErrInvalidTopicFilter = fmt.Errorf("%w: invalid topic filter", ErrConfiguration)
	ErrEmptyTopic         = fmt.Errorf("%w: topic cannot be empty", ErrConfiguration)
	ErrTopicTooLong       = fmt.Errorf("%w: topic exceeds 65535 bytes", ErrConfiguration)
)

const (
	topicSeparator      = '/'
	singleLevelWildcard = '+'
	multiLevelWildcard  = '#'
)

// checkTopic applies the rules shared by topic names and filters.
func checkTopic(topic string, invalid error) error {
	if topic == "" {
		return ErrEmptyTopic
	}

	if len(topic) > maxUint16 {
		return ErrTopicTooLong
	}

	if !utf8.ValidString(topic) || strings.IndexByte(topic, 0) >= 0 {
		return invalid
	}

	return nil
}

// ValidateTopicName validates a topic name used for PUBLISH.
// Topic names cannot contain wildcards.
func ValidateTopicName(topic string) error {
	if err := checkTopic(topic, ErrInvalidTopicName); err != nil {
		return err
	}

	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: publish topic can not contain wildcards", ErrInvalidTopicName)
	}

	return nil
}

// ValidateTopicFilter validates a topic filter used for SUBSCRIBE and UNSUBSCRIBE.
// A '+' must occupy a whole level; a '#' must occupy the last level.
func ValidateTopicFilter(filter string) error {
	if err := checkTopic(filter, ErrInvalidTopicFilter); err != nil {
		return err
	}

	levels := strings.Split(filter, string(topicSeparator))

	for i, level := range levels {
		if strings.ContainsRune(level, singleLevelWildcard) && level != string(singleLevelWildcard) {
			return ErrInvalidTopicFilter
		}

		if strings.ContainsRune(level, multiLevelWildcard) {
			if level != string(multiLevelWildcard) || i != len(levels)-1 {
				return ErrInvalidTopicFilter
			}
		}
	}

	return nil
}

// TopicMatch checks if a topic name matches a topic filter.
// Topics starting with '$' are not matched by a wildcard in the first level.
func TopicMatch(filter, topic string) bool {
	if filter == "" || topic == "" {
		return false
	}

	if topic[0] == '$' {
		if filter[0] == singleLevelWildcard || filter[0] == multiLevelWildcard {
			return false
		}
	}

	return matchLevels(filter, topic)
}

// matchLevels walks filter and topic level by level without splitting.
// A trailing separator leaves one more, empty, level.
func matchLevels(filter, topic string) bool {
	fi, ti := 0, 0
	fdone, tdone := false, false

	for !fdone {
		var flevel string
		flevel, fi, fdone = nextLevel(filter, fi)

		// "sport/#" also matches "sport"
		if flevel == string(multiLevelWildcard) {
			return true
		}

		if tdone {
			return false
		}

		var tlevel string
		tlevel, ti, tdone = nextLevel(topic, ti)

		if flevel != string(singleLevelWildcard) && flevel != tlevel {
			return false
		}
	}

	return tdone
}

// nextLevel returns the level starting at i, the start of the following
// level, and whether this was the last level.
func nextLevel(s string, i int) (string, int, bool) {
	start := i
	for i < len(s) && s[i] != topicSeparator {
		i++
	}
	if i < len(s) {
		return s[start:i], i + 1, false
	}
	return s[start:i], i, true
}

// topicHandler is a message handler bound to a topic filter.
type topicHandler struct {
	filter  string
	handler MessageHandler
}

// topicHandlers routes inbound messages to handlers by topic filter,
// in registration order.
type topicHandlers struct {
	entries []topicHandler
}

// add registers handler for filter, replacing an existing handler for the same filter.
func (h *topicHandlers) add(filter string, handler MessageHandler) {
	for i := range h.entries {
		if h.entries[i].filter == filter {
			h.entries[i].handler = handler
			return
		}
	}
	h.entries = append(h.entries, topicHandler{filter: filter, handler: handler})
}

// remove unregisters the handler for filter. Reports whether one was registered.
func (h *topicHandlers) remove(filter string) bool {
	for i := range h.entries {
		if h.entries[i].filter == filter {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			return true
		}
	}
	return false
}

// match returns the handlers whose filter matches topic.
func (h *topicHandlers) match(topic string) []MessageHandler {
	var handlers []MessageHandler
	for _, e := range h.entries {
		if TopicMatch(e.filter, topic) {
			handlers = append(handlers, e.handler)
		}
	}
	return handlers
}
