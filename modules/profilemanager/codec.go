package profilemanager

import (
	"crypto/x509"
	"encoding/json"
	"sort"

	"github.com/hive2hive/h2h/crypto"
	"github.com/hive2hive/h2h/dht"
	"github.com/hive2hive/h2h/encoding"
	"github.com/hive2hive/h2h/modules"
)

// The profile tree is a graph of Index nodes linked through an
// interface-typed Children map, which the package encoding's flat
// reflection marshaler cannot traverse directly (it has no notion of a
// polymorphic field). wireProfile is the flattened, interface-free
// mirror of a UserProfile that actually crosses the wire: every node is
// listed once, in depth-first order, referencing its parent by index.
// treeToWire/wireToTree convert between the two; every other package
// only ever sees the real modules.UserProfile tree.
type wireProfile struct {
	UserID            string
	ProtectionPublic  []byte
	ProtectionPrivate []byte
	VersionKey        crypto.Hash
	BasedOnKey        crypto.Hash
	Nodes             []wireNode
}

type wireNode struct {
	IsFolder    bool
	Name        string
	ParentIndex int64 // -1 for the root
	Public      []byte
	Private     []byte
	MD5         crypto.MD5Digest
	SharedKeys  []string
	SharedVals  []string
}

func treeToWire(p *modules.UserProfile) (wireProfile, error) {
	protPub, err := x509.MarshalPKIXPublicKey(p.ProtectionKey.Public)
	if err != nil {
		return wireProfile{}, err
	}
	var nodes []wireNode
	if p.Root != nil {
		if err := appendNode(p.Root, -1, &nodes); err != nil {
			return wireProfile{}, err
		}
	}
	return wireProfile{
		UserID:            p.UserID,
		ProtectionPublic:  protPub,
		ProtectionPrivate: x509.MarshalPKCS1PrivateKey(p.ProtectionKey.Private),
		VersionKey:        p.VersionKey,
		BasedOnKey:        p.BasedOnKey,
		Nodes:             nodes,
	}, nil
}

func appendNode(folder *modules.FolderIndex, parentIdx int, nodes *[]wireNode) error {
	pub, err := x509.MarshalPKIXPublicKey(folder.Keypair.Public)
	if err != nil {
		return err
	}
	idx := len(*nodes)
	var sharedKeys, sharedVals []string
	for k := range folder.Shared {
		sharedKeys = append(sharedKeys, k)
	}
	sort.Strings(sharedKeys)
	for _, k := range sharedKeys {
		sharedVals = append(sharedVals, folder.Shared[k])
	}
	*nodes = append(*nodes, wireNode{
		IsFolder:    true,
		Name:        folder.Name(),
		ParentIndex: int64(parentIdx),
		Public:      pub,
		Private:     x509.MarshalPKCS1PrivateKey(folder.Keypair.Private),
		SharedKeys:  sharedKeys,
		SharedVals:  sharedVals,
	})

	var names []string
	for name := range folder.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		switch child := folder.Children[name].(type) {
		case *modules.FolderIndex:
			if err := appendNode(child, idx, nodes); err != nil {
				return err
			}
		case *modules.FileIndex:
			childPub, err := x509.MarshalPKIXPublicKey(child.Keypair.Public)
			if err != nil {
				return err
			}
			*nodes = append(*nodes, wireNode{
				IsFolder:    false,
				Name:        child.Name(),
				ParentIndex: int64(idx),
				Public:      childPub,
				Private:     x509.MarshalPKCS1PrivateKey(child.Keypair.Private),
				MD5:         child.MD5,
			})
		}
	}
	return nil
}

func wireToTree(w wireProfile) (*modules.UserProfile, error) {
	protPub, err := crypto.ParseRSAPublicKey(w.ProtectionPublic)
	if err != nil {
		return nil, err
	}
	protPriv, err := x509.ParsePKCS1PrivateKey(w.ProtectionPrivate)
	if err != nil {
		return nil, err
	}

	folders := make(map[int64]*modules.FolderIndex, len(w.Nodes))
	var root *modules.FolderIndex

	for i, n := range w.Nodes {
		if !n.IsFolder {
			continue
		}
		pub, err := crypto.ParseRSAPublicKey(n.Public)
		if err != nil {
			return nil, err
		}
		priv, err := x509.ParsePKCS1PrivateKey(n.Private)
		if err != nil {
			return nil, err
		}
		var parent *modules.FolderIndex
		if n.ParentIndex >= 0 {
			parent = folders[n.ParentIndex]
		}
		f := modules.NewFolderIndex(n.Name, parent, crypto.RSAKeyPair{Public: pub, Private: priv})
		for j, k := range n.SharedKeys {
			f.Shared[k] = n.SharedVals[j]
		}
		folders[int64(i)] = f
		if parent == nil {
			root = f
		} else {
			parent.Children[f.Name()] = f
		}
	}

	for _, n := range w.Nodes {
		if n.IsFolder {
			continue
		}
		pub, err := crypto.ParseRSAPublicKey(n.Public)
		if err != nil {
			return nil, err
		}
		priv, err := x509.ParsePKCS1PrivateKey(n.Private)
		if err != nil {
			return nil, err
		}
		parent := folders[n.ParentIndex]
		file := modules.NewFileIndex(n.Name, parent, crypto.RSAKeyPair{Public: pub, Private: priv})
		file.MD5 = n.MD5
		parent.Children[file.Name()] = file
	}

	return &modules.UserProfile{
		UserID:        w.UserID,
		Root:          root,
		ProtectionKey: crypto.RSAKeyPair{Public: protPub, Private: protPriv},
		VersionKey:    w.VersionKey,
		BasedOnKey:    w.BasedOnKey,
	}, nil
}

// encryptProfile flattens, serializes, and encrypts profile under key,
// producing the DHT content envelope stored under ContentKeyUserProfile.
func encryptProfile(profile *modules.UserProfile, key crypto.AESKey) (dht.Content, error) {
	w, err := treeToWire(profile)
	if err != nil {
		return dht.Content{}, err
	}
	ct, err := key.EncryptBytes(encoding.Marshal(w))
	if err != nil {
		return dht.Content{}, err
	}
	data, err := json.Marshal(ct)
	if err != nil {
		return dht.Content{}, err
	}
	return dht.Content{Kind: dht.KindUserProfile, Data: data}, nil
}

// decryptProfile is the inverse of encryptProfile.
func decryptProfile(c dht.Content, key crypto.AESKey) (*modules.UserProfile, error) {
	if c.Kind != dht.KindUserProfile {
		return nil, dht.ErrWrongKind
	}
	var ct crypto.Ciphertext
	if err := json.Unmarshal(c.Data, &ct); err != nil {
		return nil, err
	}
	plaintext, err := key.DecryptBytes(ct)
	if err != nil {
		return nil, err
	}
	var w wireProfile
	if err := encoding.Unmarshal(plaintext, &w); err != nil {
		return nil, err
	}
	return wireToTree(w)
}
