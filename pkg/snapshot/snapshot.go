// Package snapshot persists conversation trees.
//
// A snapshot is the JSON form of a conversation.Tree with ISO-8601 dates.
// Loading validates the document against a JSON schema generated from the Go
// types, drops nodes that are unreachable from the root, and then checks the
// tree invariants. Any failure is reported as ErrPersistenceFailure so that
// callers can discard the snapshot and start over.
package snapshot

import (
	"bytes"
	"encoding/json"

	"github.com/go-go-golems/chatpath/pkg/conversation"
	"github.com/kaptinlin/jsonrepair"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// DefaultKey is the storage key of the current tree.
const DefaultKey = "chatpath-conversation-tree"

var (
	// ErrPersistenceFailure is returned for snapshots that are malformed JSON,
	// do not match the schema, or break the tree invariants.
	ErrPersistenceFailure = errors.New("persistence failure")
	// ErrSnapshotNotFound is returned by KV backends for a missing key.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// Encode serializes a tree as indented JSON.
func Encode(tree conversation.Tree) ([]byte, error) {
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "could not encode tree")
	}
	return data, nil
}

// Decode parses and validates a snapshot. A snapshot without nodes decodes
// to an empty tree without error; callers are expected to initialize a fresh
// tree in that case.
func Decode(data []byte) (conversation.Tree, error) {
	var tree conversation.Tree
	if len(bytes.TrimSpace(data)) == 0 {
		return tree, errors.Wrap(ErrPersistenceFailure, "snapshot is empty")
	}
	if !json.Valid(data) {
		return tree, errors.Wrap(ErrPersistenceFailure, "snapshot is not valid JSON")
	}
	if err := validateSchema(data); err != nil {
		return tree, err
	}
	if err := json.Unmarshal(data, &tree); err != nil {
		return conversation.Tree{}, errors.Wrap(ErrPersistenceFailure, err.Error())
	}
	if tree.IsEmpty() {
		return tree, nil
	}

	if dropped := tree.Prune(); len(dropped) > 0 {
		ids := make([]string, 0, len(dropped))
		for _, id := range dropped {
			ids = append(ids, id.String())
		}
		log.Warn().Strs("node_ids", ids).Msg("dropped nodes unreachable from the root")
	}
	if err := tree.Validate(); err != nil {
		return conversation.Tree{}, errors.Wrap(ErrPersistenceFailure, err.Error())
	}
	return tree, nil
}

// Repair fixes common hand-editing damage (trailing commas, single quotes,
// missing brackets) before the snapshot is decoded.
func Repair(data []byte) ([]byte, error) {
	if json.Valid(data) {
		return data, nil
	}
	repaired, err := jsonrepair.JSONRepair(string(data))
	if err != nil {
		return nil, errors.Wrap(ErrPersistenceFailure, err.Error())
	}
	log.Debug().Int("original_bytes", len(data)).Int("repaired_bytes", len(repaired)).Msg("repaired snapshot")
	return []byte(repaired), nil
}

// EncodeYAML renders a tree as YAML, keeping the JSON field order.
func EncodeYAML(tree conversation.Tree) ([]byte, error) {
	data, err := json.Marshal(tree)
	if err != nil {
		return nil, errors.Wrap(err, "could not encode tree")
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, errors.Wrap(err, "could not convert tree to yaml")
	}
	resetStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, errors.Wrap(err, "could not encode yaml")
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// resetStyle drops the flow and quoting styles inherited from the JSON
// input so that the encoder picks block style.
func resetStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		resetStyle(c)
	}
}
