package types

import (
	"github.com/gogo/protobuf/proto"
)

// Go types for proto/oracle/v1/tx.proto. Encoding goes through gogo's table-driven marshaller.

type NamespaceVote struct {
	Namespace string `protobuf:"bytes,1,opt,name=namespace,proto3" json:"namespace,omitempty"`
	Payload   string `protobuf:"bytes,2,opt,name=payload,proto3" json:"payload,omitempty"`
}

type ModuleVote struct {
	Module         string           `protobuf:"bytes,1,opt,name=module,proto3" json:"module,omitempty"`
	NamespaceVotes []*NamespaceVote `protobuf:"bytes,2,rep,name=namespace_votes,json=namespaceVotes,proto3" json:"namespace_votes,omitempty"`
}

type MsgPreVote struct {
	Hash      string `protobuf:"bytes,1,opt,name=hash,proto3" json:"hash,omitempty"`
	Feeder    string `protobuf:"bytes,2,opt,name=feeder,proto3" json:"feeder,omitempty"`
	Validator string `protobuf:"bytes,3,opt,name=validator,proto3" json:"validator,omitempty"`
}

type MsgCombinedVote struct {
	Feeder      string        `protobuf:"bytes,1,opt,name=feeder,proto3" json:"feeder,omitempty"`
	Validator   string        `protobuf:"bytes,2,opt,name=validator,proto3" json:"validator,omitempty"`
	Salt        string        `protobuf:"bytes,3,opt,name=salt,proto3" json:"salt,omitempty"`
	ModuleVotes []*ModuleVote `protobuf:"bytes,4,rep,name=module_votes,json=moduleVotes,proto3" json:"module_votes,omitempty"`
}

var (
	xxx_messageInfo_NamespaceVote   proto.InternalMessageInfo //nolint:revive,stylecheck // generated-style name
	xxx_messageInfo_ModuleVote      proto.InternalMessageInfo //nolint:revive,stylecheck // generated-style name
	xxx_messageInfo_MsgPreVote      proto.InternalMessageInfo //nolint:revive,stylecheck // generated-style name
	xxx_messageInfo_MsgCombinedVote proto.InternalMessageInfo //nolint:revive,stylecheck // generated-style name
)

func init() { //nolint:gochecknoinits // proto type registration
	proto.RegisterType((*NamespaceVote)(nil), "oracle.v1.NamespaceVote")
	proto.RegisterType((*ModuleVote)(nil), "oracle.v1.ModuleVote")
	proto.RegisterType((*MsgPreVote)(nil), "oracle.v1.MsgPreVote")
	proto.RegisterType((*MsgCombinedVote)(nil), "oracle.v1.MsgCombinedVote")
}

func (m *NamespaceVote) Reset()         { *m = NamespaceVote{} }
func (m *NamespaceVote) String() string { return proto.CompactTextString(m) }
func (*NamespaceVote) ProtoMessage()    {}
func (m *NamespaceVote) XXX_Unmarshal(b []byte) error {
	return xxx_messageInfo_NamespaceVote.Unmarshal(m, b)
}
func (m *NamespaceVote) XXX_Marshal(b []byte, deterministic bool) ([]byte, error) {
	return xxx_messageInfo_NamespaceVote.Marshal(b, m, deterministic)
}
func (m *NamespaceVote) XXX_Size() int { return xxx_messageInfo_NamespaceVote.Size(m) }

func (m *ModuleVote) Reset()         { *m = ModuleVote{} }
func (m *ModuleVote) String() string { return proto.CompactTextString(m) }
func (*ModuleVote) ProtoMessage()    {}
func (m *ModuleVote) XXX_Unmarshal(b []byte) error {
	return xxx_messageInfo_ModuleVote.Unmarshal(m, b)
}
func (m *ModuleVote) XXX_Marshal(b []byte, deterministic bool) ([]byte, error) {
	return xxx_messageInfo_ModuleVote.Marshal(b, m, deterministic)
}
func (m *ModuleVote) XXX_Size() int { return xxx_messageInfo_ModuleVote.Size(m) }

func (m *MsgPreVote) Reset()         { *m = MsgPreVote{} }
func (m *MsgPreVote) String() string { return proto.CompactTextString(m) }
func (*MsgPreVote) ProtoMessage()    {}
func (m *MsgPreVote) XXX_Unmarshal(b []byte) error {
	return xxx_messageInfo_MsgPreVote.Unmarshal(m, b)
}
func (m *MsgPreVote) XXX_Marshal(b []byte, deterministic bool) ([]byte, error) {
	return xxx_messageInfo_MsgPreVote.Marshal(b, m, deterministic)
}
func (m *MsgPreVote) XXX_Size() int { return xxx_messageInfo_MsgPreVote.Size(m) }

func (m *MsgCombinedVote) Reset()         { *m = MsgCombinedVote{} }
func (m *MsgCombinedVote) String() string { return proto.CompactTextString(m) }
func (*MsgCombinedVote) ProtoMessage()    {}
func (m *MsgCombinedVote) XXX_Unmarshal(b []byte) error {
	return xxx_messageInfo_MsgCombinedVote.Unmarshal(m, b)
}
func (m *MsgCombinedVote) XXX_Marshal(b []byte, deterministic bool) ([]byte, error) {
	return xxx_messageInfo_MsgCombinedVote.Marshal(b, m, deterministic)
}
func (m *MsgCombinedVote) XXX_Size() int { return xxx_messageInfo_MsgCombinedVote.Size(m) }
