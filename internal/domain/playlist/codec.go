package playlist

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// rulesBlobVersion is bumped whenever the stored document shape changes.
const rulesBlobVersion = 1

const (
	kindSticker      = "Sticker"
	kindQuery        = "Query"
	kindLastModified = "LastModified"
)

type ruleDoc struct {
	Kind   string `bson:"kind"`
	Target string `bson:"target,omitempty"`
	Key    string `bson:"key,omitempty"`
	Op     string `bson:"op,omitempty"`
	Lhs    string `bson:"lhs,omitempty"`
	Value  string `bson:"value,omitempty"`
	Within int64  `bson:"within,omitempty"`
}

type rulesBlob struct {
	Version     int       `bson:"v"`
	Description string    `bson:"description,omitempty"`
	Rules       []ruleDoc `bson:"rules"`
	Ordering    []string  `bson:"ordering"`
}

// EncodeDefinition serializes the playlist's rules, ordering and description
// into the BSON blob stored alongside the playlist row.
func (dp *DynamicPlaylist) EncodeDefinition() ([]byte, error) {
	blob := rulesBlob{
		Version:     rulesBlobVersion,
		Description: dp.Description,
		Rules:       make([]ruleDoc, 0, len(dp.Rules)),
		Ordering:    make([]string, 0, len(dp.Ordering)),
	}
	for _, rule := range dp.Rules {
		switch r := rule.(type) {
		case StickerRule:
			blob.Rules = append(blob.Rules, ruleDoc{
				Kind:   kindSticker,
				Target: r.Target.String(),
				Key:    r.Key,
				Op:     r.Op.String(),
				Value:  r.Value,
			})
		case QueryRule:
			blob.Rules = append(blob.Rules, ruleDoc{
				Kind:  kindQuery,
				Lhs:   r.Lhs.String(),
				Op:    r.Op.String(),
				Value: r.Value,
			})
		case LastModifiedRule:
			blob.Rules = append(blob.Rules, ruleDoc{
				Kind:   kindLastModified,
				Within: r.Within,
			})
		default:
			return nil, fmt.Errorf("unsupported rule type %T", rule)
		}
	}
	for _, key := range dp.Ordering {
		blob.Ordering = append(blob.Ordering, key.String())
	}

	data, err := bson.Marshal(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rules blob: %w", err)
	}
	return data, nil
}

// DecodeDefinition is the inverse of EncodeDefinition. Unknown rule kinds,
// operators or ordering keys are an error rather than being silently dropped
// so that a playlist written by a newer build is never partially applied.
func (dp *DynamicPlaylist) DecodeDefinition(data []byte) error {
	var blob rulesBlob
	if err := bson.Unmarshal(data, &blob); err != nil {
		return fmt.Errorf("failed to unmarshal rules blob: %w", err)
	}
	if blob.Version != rulesBlobVersion {
		return fmt.Errorf("unsupported rules blob version %d", blob.Version)
	}

	rules := make([]Rule, 0, len(blob.Rules))
	for _, doc := range blob.Rules {
		switch doc.Kind {
		case kindSticker:
			target, err := ParseStickerTarget(doc.Target)
			if err != nil {
				return err
			}
			op, err := ParseStickerOp(doc.Op)
			if err != nil {
				return err
			}
			rules = append(rules, StickerRule{Target: target, Key: doc.Key, Op: op, Value: doc.Value})
		case kindQuery:
			lhs, err := ParseQueryLhs(doc.Lhs)
			if err != nil {
				return err
			}
			op, err := ParseTagOp(doc.Op)
			if err != nil {
				return err
			}
			rules = append(rules, QueryRule{Lhs: lhs, Op: op, Value: doc.Value})
		case kindLastModified:
			rules = append(rules, LastModifiedRule{Within: doc.Within})
		default:
			return fmt.Errorf("unknown rule kind %q", doc.Kind)
		}
	}

	ordering := make([]OrderingKey, 0, len(blob.Ordering))
	for _, name := range blob.Ordering {
		key, err := ParseOrderingKey(name)
		if err != nil {
			return err
		}
		ordering = append(ordering, key)
	}

	dp.Description = blob.Description
	dp.Rules = rules
	dp.Ordering = ordering
	return nil
}
