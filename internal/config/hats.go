package config

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/basket/ralph/internal/hat"
	"github.com/basket/ralph/internal/topic"
)

// hatConfigSchema constrains the shape of a single entry under the `hats`
// map before it is turned into a hat.Hat: a name is mandatory, and
// subscriptions/publishes must be non-empty topic/pattern strings when
// present, catching an empty-string typo at load time instead of letting it
// silently produce a hat nothing ever matches.
const hatConfigSchema = `{
  "type": "object",
  "required": ["name"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "subscriptions": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    },
    "publishes": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    },
    "instructions": {"type": "string"}
  }
}`

func compileHatSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(hatConfigSchema))
	if err != nil {
		return nil, fmt.Errorf("config: unmarshal hat schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("hat.json", doc); err != nil {
		return nil, fmt.Errorf("config: add hat schema resource: %w", err)
	}
	return c.Compile("hat.json")
}

// BuildRegistry validates every entry of cfg.Hats against the hat config
// schema and registers each as a hat.Hat, in ascending order of id. `hats`
// is a `map[string]HatConfig`, and Go map iteration order is randomized per
// run; registering in that order would make `bus.NextHatWithPending`'s
// registration-order tie-break nondeterministic across runs of the same
// config. Sorting the keys first makes registration order a pure function
// of the config content again.
func BuildRegistry(hats map[string]HatConfig) (*hat.Registry, error) {
	schema, err := compileHatSchema()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(hats))
	for id := range hats {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	registry := hat.NewRegistry()
	for _, id := range ids {
		hc := hats[id]
		if err := validateHatConfig(schema, hc); err != nil {
			return nil, fmt.Errorf("config: hat %q: %w", id, err)
		}

		subs := make([]topic.Pattern, 0, len(hc.Subscriptions))
		for _, s := range hc.Subscriptions {
			p, err := topic.NewPattern(s)
			if err != nil {
				return nil, fmt.Errorf("config: hat %q: subscription: %w", id, err)
			}
			subs = append(subs, p)
		}

		pubs := make([]topic.Topic, 0, len(hc.Publishes))
		for _, s := range hc.Publishes {
			tp, err := topic.New(s)
			if err != nil {
				return nil, fmt.Errorf("config: hat %q: publish topic: %w", id, err)
			}
			pubs = append(pubs, tp)
		}

		h := hat.Hat{
			ID:            hat.ID(id),
			Name:          hc.Name,
			Subscriptions: subs,
			Publishes:     pubs,
			Instructions:  hc.Instructions,
		}
		if err := registry.Register(h); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	return registry, nil
}

func validateHatConfig(schema *jsonschema.Schema, hc HatConfig) error {
	raw, err := json.Marshal(hc)
	if err != nil {
		return fmt.Errorf("marshal for validation: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return fmt.Errorf("unmarshal for validation: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}
