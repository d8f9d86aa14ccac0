package tree

import "fmt"

// Mode is the decoded form of a 12-bit permission field: three special
// bits (setuid, setgid, sticky) plus the classical owner/group/other
// read/write/execute triples.
type Mode struct {
	Special SpecialBits
	User    Perms
	Group   Perms
	Other   Perms
}

// Perms is one read/write/execute triple.
type Perms struct {
	Read    bool
	Write   bool
	Execute bool
}

// SpecialBits holds the three bits above the classical nine.
type SpecialBits struct {
	Setuid bool
	Setgid bool
	Sticky bool
}

// ParseMode decodes a 12-bit mode value. Values above 0o7777 are
// rejected; callers treat that as an internal error since every mode
// stored in the tree is assigned at node creation.
func ParseMode(mode uint32) (Mode, error) {
	if mode > 0o7777 {
		return Mode{}, fmt.Errorf("mode %#o exceeds 12-bit range", mode)
	}
	return Mode{
		Special: SpecialBits{
			Setuid: mode&0o4000 != 0,
			Setgid: mode&0o2000 != 0,
			Sticky: mode&0o1000 != 0,
		},
		User:  parsePerms(mode >> 6),
		Group: parsePerms(mode >> 3),
		Other: parsePerms(mode),
	}, nil
}

func parsePerms(bits uint32) Perms {
	return Perms{
		Read:    bits&0o4 != 0,
		Write:   bits&0o2 != 0,
		Execute: bits&0o1 != 0,
	}
}

// Bits re-encodes the mode. Bits is the exact inverse of ParseMode.
func (m Mode) Bits() uint32 {
	var mode uint32
	if m.Special.Setuid {
		mode |= 0o4000
	}
	if m.Special.Setgid {
		mode |= 0o2000
	}
	if m.Special.Sticky {
		mode |= 0o1000
	}
	mode |= m.User.bits() << 6
	mode |= m.Group.bits() << 3
	mode |= m.Other.bits()
	return mode
}

func (p Perms) bits() uint32 {
	var bits uint32
	if p.Read {
		bits |= 0o4
	}
	if p.Write {
		bits |= 0o2
	}
	if p.Execute {
		bits |= 0o1
	}
	return bits
}

// String renders the classical nine-character rwx listing, folding the
// special bits into the execute slots (s/S, s/S, t/T).
func (m Mode) String() string {
	buf := make([]byte, 0, 9)
	buf = m.User.appendString(buf, m.Special.Setuid, 's')
	buf = m.Group.appendString(buf, m.Special.Setgid, 's')
	buf = m.Other.appendString(buf, m.Special.Sticky, 't')
	return string(buf)
}

func (p Perms) appendString(buf []byte, special bool, specialChar byte) []byte {
	if p.Read {
		buf = append(buf, 'r')
	} else {
		buf = append(buf, '-')
	}
	if p.Write {
		buf = append(buf, 'w')
	} else {
		buf = append(buf, '-')
	}
	switch {
	case p.Execute && special:
		buf = append(buf, specialChar)
	case p.Execute:
		buf = append(buf, 'x')
	case special:
		buf = append(buf, specialChar-'a'+'A')
	default:
		buf = append(buf, '-')
	}
	return buf
}

// permsFor selects the triple that applies to the requester: owner bits
// when the uid matches the node owner, group bits when the gid matches
// the node group, other bits otherwise.
func (m Mode) permsFor(uid, gid, ownerUID, ownerGID uint32) Perms {
	if uid == ownerUID {
		return m.User
	}
	if gid == ownerGID {
		return m.Group
	}
	return m.Other
}

// CanRead reports whether the requester identity may read the node.
func (a Attr) CanRead(uid, gid uint32) bool {
	return a.mode().permsFor(uid, gid, a.UID, a.GID).Read
}

// CanWrite reports whether the requester identity may write the node.
func (a Attr) CanWrite(uid, gid uint32) bool {
	return a.mode().permsFor(uid, gid, a.UID, a.GID).Write
}

// CanExecute reports whether the requester identity may execute
// (traverse, for directories) the node.
func (a Attr) CanExecute(uid, gid uint32) bool {
	return a.mode().permsFor(uid, gid, a.UID, a.GID).Execute
}

func (a Attr) mode() Mode {
	m, err := ParseMode(a.Perm)
	if err != nil {
		// Modes are assigned at creation and never exceed 12 bits.
		panic(err)
	}
	return m
}
