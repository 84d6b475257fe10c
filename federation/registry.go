package federation

import (
	"github.com/distsocial/streamnode/util"
	"golang.org/x/crypto/bcrypt"
)

// Node is one registered federated peer. Outbound credentials are what
// we present to them, inbound credentials are what they present to us.
type Node struct {
	URL            string
	OutUsername    string
	OutPassword    string
	InUsername     string
	InPasswordHash string
}

// Registry is the administered table of known remote nodes. It is
// loaded once from config and read-only afterwards.
type Registry struct {
	nodes []Node
}

func NewRegistry(conf *util.AppConfig) *Registry {
	nodes := make([]Node, 0, len(conf.Conf.Nodes))
	for _, n := range conf.Conf.Nodes {
		nodes = append(nodes, Node{
			URL:            n.URL,
			OutUsername:    n.OutUsername,
			OutPassword:    n.OutPassword,
			InUsername:     n.InUsername,
			InPasswordHash: n.InPasswordHash,
		})
	}
	return &Registry{nodes: nodes}
}

func (r *Registry) Nodes() []Node {
	return r.nodes
}

// NodeForURI resolves the owning node of an author or post URI by host
// match. Returns nil when the host is not registered.
func (r *Registry) NodeForURI(uri string) *Node {
	host := util.HostOf(uri)
	if host == "" {
		return nil
	}
	for i := range r.nodes {
		if util.HostOf(r.nodes[i].URL) == host {
			return &r.nodes[i]
		}
	}
	return nil
}

// CheckInbound verifies credentials a remote node presented to us.
// Passwords are stored as bcrypt hashes in the registry.
func (r *Registry) CheckInbound(username, password string) bool {
	for i := range r.nodes {
		if r.nodes[i].InUsername != username {
			continue
		}
		err := bcrypt.CompareHashAndPassword([]byte(r.nodes[i].InPasswordHash), []byte(password))
		return err == nil
	}
	return false
}
