package kafka

import (
	"strings"
	"time"
)

// Config holds Kafka producer settings.
type Config struct {
	Brokers      []string
	WriteTimeout time.Duration
	// AutoCreateTopics lets the broker create topics on first write.
	AutoCreateTopics bool
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
