package redisstream

const (
	// DefaultTopic carries generation lifecycle events from the controller to the UI.
	DefaultTopic    = "chefbot.lifecycle"
	DefaultGroup    = "chefbot-ui"
	DefaultConsumer = "ui-1"
)

// Settings holds the event bus transport configuration. When Enabled is
// false the bus is an in-process channel.
type Settings struct {
	Enabled  bool   `mapstructure:"events-redis" yaml:"events-redis"`
	Addr     string `mapstructure:"events-redis-addr" yaml:"events-redis-addr"`
	Group    string `mapstructure:"events-redis-group" yaml:"events-redis-group"`
	Consumer string `mapstructure:"events-redis-consumer" yaml:"events-redis-consumer"`
	Topic    string `mapstructure:"events-topic" yaml:"events-topic"`
}

func (s Settings) topic() string {
	if s.Topic == "" {
		return DefaultTopic
	}
	return s.Topic
}

func (s Settings) group() string {
	if s.Group == "" {
		return DefaultGroup
	}
	return s.Group
}

func (s Settings) consumer() string {
	if s.Consumer == "" {
		return DefaultConsumer
	}
	return s.Consumer
}
