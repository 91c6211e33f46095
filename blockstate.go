package blockview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ModelRef points a block state at a model with placement options.
type ModelRef struct {
	Model  string `json:"model"`
	X      int    `json:"x,omitempty"`
	Y      int    `json:"y,omitempty"`
	UVLock bool   `json:"uvlock,omitempty"`
	Weight *int   `json:"weight,omitempty"`
}

func (r ModelRef) weight() int {
	if r.Weight == nil {
		return 1
	}
	return *r.Weight
}

// ModelRefs is a single reference or a weighted list of alternatives.
type ModelRefs []ModelRef

func (r *ModelRefs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []ModelRef
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*r = list
		return nil
	}
	var one ModelRef
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*r = ModelRefs{one}
	return nil
}

// Condition is a multipart "when" clause: property values separated by "|",
// or an "OR"/"AND" list of nested clauses.
type Condition struct {
	Or    []Condition
	And   []Condition
	Props map[string]string
}

func (c *Condition) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		switch k {
		case "OR":
			if err := json.Unmarshal(v, &c.Or); err != nil {
				return fmt.Errorf("OR: %w", err)
			}
		case "AND":
			if err := json.Unmarshal(v, &c.And); err != nil {
				return fmt.Errorf("AND: %w", err)
			}
		default:
			if c.Props == nil {
				c.Props = make(map[string]string)
			}
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				// Some packs write bare booleans and numbers.
				s = string(bytes.TrimSpace(v))
			}
			c.Props[k] = s
		}
	}
	return nil
}

// Matches reports whether props satisfy the clause. A clause with no
// properties and no lists matches everything.
func (c *Condition) Matches(props map[string]string) bool {
	if c == nil {
		return true
	}
	for key, want := range c.Props {
		have, ok := props[key]
		if !ok {
			return false
		}
		matched := false
		for _, alt := range strings.Split(want, "|") {
			if alt == have {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for i := range c.And {
		if !c.And[i].Matches(props) {
			return false
		}
	}
	if len(c.Or) > 0 {
		for i := range c.Or {
			if c.Or[i].Matches(props) {
				return true
			}
		}
		return false
	}
	return true
}

type MultipartCase struct {
	When  *Condition `json:"when,omitempty"`
	Apply ModelRefs  `json:"apply"`
}

// BlockStateDoc is a block-state document. Exactly one of Variants and
// Multipart is set.
type BlockStateDoc struct {
	Variants  map[string]ModelRefs `json:"variants,omitempty"`
	Multipart []MultipartCase      `json:"multipart,omitempty"`
}

func ParseBlockState(block string, data []byte, schema *jsonschema.Schema) (*BlockStateDoc, error) {
	if err := validateDocument(schema, data); err != nil {
		return nil, &AssetLoadError{URI: block, Err: err}
	}
	var doc BlockStateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &AssetLoadError{URI: block, Err: err}
	}
	if err := doc.validate(block); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *BlockStateDoc) validate(block string) error {
	switch {
	case d.Variants != nil && d.Multipart != nil:
		return &InvalidBlockStateError{Block: block, Reason: "declares both variants and multipart"}
	case d.Variants == nil && d.Multipart == nil:
		return &InvalidBlockStateError{Block: block, Reason: "declares neither variants nor multipart"}
	}
	check := func(refs ModelRefs, where string) error {
		if len(refs) == 0 {
			return &InvalidBlockStateError{Block: block, Reason: where + ": empty model list"}
		}
		for _, r := range refs {
			if r.Model == "" {
				return &InvalidBlockStateError{Block: block, Reason: where + ": missing model"}
			}
			if r.weight() < 1 {
				return &InvalidBlockStateError{Block: block, Reason: fmt.Sprintf("%s: weight %d", where, r.weight())}
			}
		}
		return nil
	}
	for key, refs := range d.Variants {
		if err := check(refs, fmt.Sprintf("variant %q", key)); err != nil {
			return err
		}
	}
	for i, c := range d.Multipart {
		if err := check(c.Apply, fmt.Sprintf("multipart[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

// SplitTags splits a property string on "," and appends the empty tag.
func SplitTags(props string) []string {
	var tags []string
	if props != "" {
		tags = strings.Split(props, ",")
	}
	return append(tags, "")
}

// ParseProps turns "a=1,b=2" into a map. Entries without "=" are ignored.
func ParseProps(props string) map[string]string {
	out := make(map[string]string)
	if props == "" {
		return out
	}
	for _, kv := range strings.Split(props, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

// MatchVariant returns the alternatives for the first tag, in input order,
// that is a variant key. Keys combining several properties match when every
// pair is present in props; the most specific such key wins.
func (d *BlockStateDoc) MatchVariant(block, props string) (ModelRefs, error) {
	tags := SplitTags(props)
	for _, tag := range tags {
		if refs, ok := d.Variants[tag]; ok {
			return refs, nil
		}
	}

	have := ParseProps(props)
	var candidates []string
	best := -1
	for key := range d.Variants {
		want := ParseProps(key)
		if len(want) == 0 || len(want) < best {
			continue
		}
		if !containsAll(have, want) {
			continue
		}
		if len(want) > best {
			best, candidates = len(want), candidates[:0]
		}
		candidates = append(candidates, key)
	}
	if len(candidates) > 0 {
		sort.Strings(candidates)
		return d.Variants[candidates[0]], nil
	}
	return nil, &NoMatchingVariantError{Block: block, Tags: tags}
}

func containsAll(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

// MatchMultipart returns one group of alternatives per matching case, in
// document order.
func (d *BlockStateDoc) MatchMultipart(block, props string, limit int) ([]ModelRefs, error) {
	have := ParseProps(props)
	var groups []ModelRefs
	for i := range d.Multipart {
		c := &d.Multipart[i]
		if c.When.Matches(have) {
			groups = append(groups, c.Apply)
		}
	}
	if len(groups) > limit {
		return nil, &TooManyPartsError{What: fmt.Sprintf("block %s multipart", block), Count: len(groups), Limit: limit}
	}
	return groups, nil
}

// Match dispatches on the document kind.
func (d *BlockStateDoc) Match(block, props string, limit int) ([]ModelRefs, error) {
	if d.Multipart != nil {
		return d.MatchMultipart(block, props, limit)
	}
	refs, err := d.MatchVariant(block, props)
	if err != nil {
		return nil, err
	}
	return []ModelRefs{refs}, nil
}
