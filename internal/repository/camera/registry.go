package camera

import (
	"sort"

	domain "github.com/oshokin/camera-funnel/internal/domain/camera"
)

// Registry is an immutable in-memory camera and topic table.
type Registry struct {
	// cameras maps camera name to its config.
	cameras map[string]*domain.Config
	// topics maps an exact MQTT topic to its mapping.
	topics map[string]domain.TopicMapping
}

// NewRegistry copies the provided cameras and topic mappings into a registry.
func NewRegistry(cameras []*domain.Config, topics map[string]domain.TopicMapping) *Registry {
	r := &Registry{
		cameras: make(map[string]*domain.Config, len(cameras)),
		topics:  make(map[string]domain.TopicMapping, len(topics)),
	}

	for _, c := range cameras {
		if c == nil {
			continue
		}

		r.cameras[c.Name] = c.Clone()
	}

	for topic, mapping := range topics {
		r.topics[topic] = mapping
	}

	return r
}

// Camera returns a copy of the named camera config.
func (r *Registry) Camera(name string) (*domain.Config, bool) {
	c, ok := r.cameras[name]
	if !ok {
		return nil, false
	}

	return c.Clone(), true
}

// Topic returns the mapping of an exact MQTT topic.
func (r *Registry) Topic(topic string) (domain.TopicMapping, bool) {
	m, ok := r.topics[topic]

	return m, ok
}

// Topics returns every mapped topic in sorted order.
func (r *Registry) Topics() []string {
	topics := make([]string, 0, len(r.topics))
	for topic := range r.topics {
		topics = append(topics, topic)
	}

	sort.Strings(topics)

	return topics
}

// Names returns every camera name in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.cameras))
	for name := range r.cameras {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
