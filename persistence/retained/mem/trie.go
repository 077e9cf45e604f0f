package mem

import (
	"strings"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/persistence/retained"
)

type children = map[string]*topicNode

// topicNode is a level of a topic name. A node holds a message only if a message was
// retained on the exact topic it represents.
type topicNode struct {
	children children
	msg      *pushstore.StoredMessage
	parent   *topicNode
	level    string
}

func newTopicTrie() *topicNode {
	return &topicNode{
		children: children{},
	}
}

func (t *topicNode) newChild(level string) *topicNode {
	return &topicNode{
		children: children{},
		parent:   t,
		level:    level,
	}
}

// find returns the node of topicName, or nil if no message is retained on it.
func (t *topicNode) find(topicName string) *topicNode {
	pNode := t
	for _, lv := range strings.Split(topicName, "/") {
		n, ok := pNode.children[lv]
		if !ok {
			return nil
		}
		pNode = n
	}
	if pNode.msg != nil {
		return pNode
	}
	return nil
}

// put sets the message of topicName and reports whether the topic was empty before.
func (t *topicNode) put(topicName string, msg *pushstore.StoredMessage) (added bool) {
	pNode := t
	for _, lv := range strings.Split(topicName, "/") {
		n, ok := pNode.children[lv]
		if !ok {
			n = pNode.newChild(lv)
			pNode.children[lv] = n
		}
		pNode = n
	}
	added = pNode.msg == nil
	pNode.msg = msg
	return added
}

// remove clears the message of topicName and prunes the nodes left empty.
// It reports whether a message was removed.
func (t *topicNode) remove(topicName string) bool {
	pNode := t.find(topicName)
	if pNode == nil {
		return false
	}
	pNode.msg = nil
	for pNode.parent != nil && pNode.msg == nil && len(pNode.children) == 0 {
		delete(pNode.parent.children, pNode.level)
		pNode = pNode.parent
	}
	return true
}

func (t *topicNode) preOrderTraverse(fn retained.IterateFn) bool {
	if t == nil {
		return false
	}
	if t.msg != nil {
		if !fn(t.msg.Copy()) {
			return false
		}
	}
	for _, c := range t.children {
		if !c.preOrderTraverse(fn) {
			return false
		}
	}
	return true
}

func isSystemTopic(topicName string) bool {
	return len(topicName) >= 1 && topicName[0] == '$'
}
