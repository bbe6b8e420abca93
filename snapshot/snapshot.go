// Package snapshot serializes a filesystem (tree, users, groups and one
// session) to a blob and rebuilds it. Locks are never serialized; decoding
// constructs fresh nodes, re-links parents and repairs the session's working
// directory if it no longer resolves under the root.
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/filesystem"
	"github.com/brettbedarf/memfs/internal/util"
	"github.com/brettbedarf/memfs/operations"
	"github.com/brettbedarf/memfs/permissions"
)

// Version of the document layout written by Encode.
const Version = 1

// Formats understood by [NewCodec].
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

type document struct {
	Version int                     `json:"version" yaml:"version"`
	Root    nodeDoc                 `json:"root" yaml:"root"`
	Users   usersDoc                `json:"users" yaml:"users"`
	Groups  []permissions.GroupInfo `json:"groups" yaml:"groups"`
	Session sessionDoc              `json:"session" yaml:"session"`
}

type nodeDoc struct {
	ID         string             `json:"id" yaml:"id"`
	Name       string             `json:"name" yaml:"name"`
	Kind       memfs.Kind         `json:"kind" yaml:"kind"`
	Owner      string             `json:"owner" yaml:"owner"`
	Content    []byte             `json:"content,omitempty" yaml:"content,omitempty"`
	Target     string             `json:"target,omitempty" yaml:"target,omitempty"`
	CreatedAt  time.Time          `json:"created_at" yaml:"created_at"`
	ModifiedAt time.Time          `json:"modified_at" yaml:"modified_at"`
	Grants     []memfs.Permission `json:"grants,omitempty" yaml:"grants,omitempty"`
	Children   []nodeDoc          `json:"children,omitempty" yaml:"children,omitempty"`
}

type usersDoc struct {
	Scheme  string            `json:"scheme" yaml:"scheme"`
	Secrets map[string]string `json:"secrets" yaml:"secrets"`
}

type sessionDoc struct {
	User string `json:"user" yaml:"user"`
	Cwd  string `json:"cwd" yaml:"cwd"` // node ID
}

// Codec encodes and decodes snapshots in one format.
type Codec struct {
	format string
}

// NewCodec returns a codec for format ("" selects JSON).
func NewCodec(format string) (*Codec, error) {
	switch format {
	case "", FormatJSON:
		return &Codec{format: FormatJSON}, nil
	case FormatYAML:
		return &Codec{format: FormatYAML}, nil
	}
	return nil, fmt.Errorf("unknown snapshot format %q", format)
}

func (c *Codec) Format() string {
	return c.format
}

// Encode captures fs and session s. Each directory is read under its own
// lock, so concurrent mutation elsewhere may or may not be included.
func (c *Codec) Encode(fs *operations.FS, s *operations.Session) ([]byte, error) {
	creds := fs.Engine().Credentials()
	doc := document{
		Version: Version,
		Root:    encodeNode(fs.Tree().Root()),
		Users:   usersDoc{Scheme: creds.Scheme(), Secrets: creds.Export()},
		Groups:  fs.Engine().ListGroups(),
	}
	if s != nil {
		doc.Session.User = s.User
		if s.Cwd != nil {
			doc.Session.Cwd = s.Cwd.ID()
		}
	}

	var (
		data []byte
		err  error
	)
	if c.format == FormatYAML {
		data, err = yaml.Marshal(&doc)
	} else {
		data, err = json.Marshal(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func encodeNode(n *filesystem.Node) nodeDoc {
	doc := nodeDoc{
		ID:        n.ID(),
		Name:      n.Name(),
		Kind:      n.Kind(),
		Owner:     n.Owner(),
		CreatedAt: n.CreatedAt(),
		Grants:    n.Grants(),
	}
	ctx := n.Lock()
	doc.ModifiedAt = ctx.ModifiedAt()
	doc.Target = ctx.Target()
	var children []*filesystem.Node
	if n.IsDir() {
		children = ctx.Children()
	} else if content, err := ctx.Content(); err == nil {
		doc.Content = content
	}
	ctx.Close()

	for _, ch := range children {
		doc.Children = append(doc.Children, encodeNode(ch))
	}
	return doc
}

// Options tune how a decoded filesystem is assembled.
type Options struct {
	// AuthScheme is the credential scheme wanted after load. Plaintext
	// secrets are re-hashed when bcrypt is requested; otherwise the stored
	// scheme is kept.
	AuthScheme string
	BcryptCost int
	// DefaultUser is used when the snapshot carries no session user
	DefaultUser string
	// FS options passed to operations.New
	FS []operations.Option
}

// Decode rebuilds a filesystem and session from data.
func (c *Codec) Decode(data []byte, opts Options) (*operations.FS, *operations.Session, error) {
	logger := util.GetLogger("Snapshot.Decode")

	var doc document
	var err error
	if c.format == FormatYAML {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Version != Version {
		return nil, nil, fmt.Errorf("unsupported snapshot version %d", doc.Version)
	}
	if doc.Root.Kind != memfs.KindDir {
		return nil, nil, memfs.NewError(memfs.Corrupted, filesystem.RootName, "root is not a directory")
	}

	doc.Root.Name = filesystem.RootName
	byID := make(map[string]*filesystem.Node)
	root, err := decodeNode(doc.Root, byID)
	if err != nil {
		return nil, nil, err
	}
	tree := filesystem.NewTreeFromRoot(root)

	creds, err := decodeUsers(doc.Users, opts)
	if err != nil {
		return nil, nil, err
	}
	engine := permissions.New(tree, creds)
	for _, g := range doc.Groups {
		engine.RestoreGroup(g)
	}

	fs := operations.New(tree, engine, opts.FS...)
	user := doc.Session.User
	if user == "" {
		user = opts.DefaultUser
	}
	s := fs.NewSession(user)
	if cwd, ok := byID[doc.Session.Cwd]; ok && root.IsAncestorOf(cwd) && cwd.IsDir() {
		s.Cwd = cwd
	} else if doc.Session.Cwd != "" && doc.Session.Cwd != root.ID() {
		logger.Warn().Str("cwd", doc.Session.Cwd).Msg("Working directory not reachable from root; reset to /")
	}
	return fs, s, nil
}

func decodeNode(doc nodeDoc, byID map[string]*filesystem.Node) (*filesystem.Node, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, memfs.NewError(memfs.Corrupted, doc.Name, "bad node id %q", doc.ID)
	}
	if _, dup := byID[doc.ID]; dup {
		return nil, memfs.NewError(memfs.Corrupted, doc.Name, "duplicate node id %s", doc.ID)
	}
	if doc.Kind != memfs.KindDir && doc.Kind != memfs.KindFile {
		return nil, memfs.NewError(memfs.Corrupted, doc.Name, "unknown node kind %q", doc.Kind)
	}
	if doc.Kind == memfs.KindFile && len(doc.Children) > 0 {
		return nil, memfs.NewError(memfs.Corrupted, doc.Name, "file has children")
	}

	n := filesystem.NewNode(filesystem.NodeSpec{
		ID:         id,
		Name:       doc.Name,
		Kind:       doc.Kind,
		Owner:      doc.Owner,
		Content:    doc.Content,
		Target:     doc.Target,
		CreatedAt:  doc.CreatedAt,
		ModifiedAt: doc.ModifiedAt,
	})
	byID[doc.ID] = n
	for _, p := range doc.Grants {
		n.SetGrant(p.Owner, p)
	}
	if len(doc.Children) == 0 {
		return n, nil
	}

	children := make([]*filesystem.Node, 0, len(doc.Children))
	for _, chDoc := range doc.Children {
		if err := filesystem.ValidName(chDoc.Name); err != nil {
			return nil, memfs.NewError(memfs.Corrupted, chDoc.Name, "invalid node name")
		}
		ch, err := decodeNode(chDoc, byID)
		if err != nil {
			return nil, err
		}
		children = append(children, ch)
	}

	ctx := n.Lock()
	defer ctx.Close()
	for _, ch := range children {
		if err := ctx.InsertChild(ch); err != nil {
			return nil, memfs.NewError(memfs.Corrupted, ch.Name(), "%v", err)
		}
	}
	// inserting children bumps the time; keep the stored one
	ctx.SetModifiedAt(doc.ModifiedAt)
	return n, nil
}

func decodeUsers(doc usersDoc, opts Options) (permissions.CredentialStore, error) {
	scheme := doc.Scheme
	if scheme == "" {
		scheme = permissions.SchemePlaintext
	}
	if scheme == permissions.SchemePlaintext && opts.AuthScheme == permissions.SchemeBcrypt {
		creds, err := permissions.NewBcryptStore(opts.BcryptCost)
		if err != nil {
			return nil, err
		}
		for user, password := range doc.Secrets {
			if err := creds.Set(user, password); err != nil {
				return nil, err
			}
		}
		return creds, nil
	}
	creds, err := permissions.NewCredentialStore(scheme, opts.BcryptCost)
	if err != nil {
		return nil, err
	}
	creds.Import(doc.Secrets)
	return creds, nil
}
