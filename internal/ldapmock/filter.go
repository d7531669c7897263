package ldapmock

import (
	"fmt"
	"strings"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/go-ldap/ldap/v3"
)

type matcher func(entry *ldap.Entry) bool

// compileFilter parses an RFC 4515 filter with go-ldap and turns the resulting packet into
// a matcher. Only the operators used by the authenticator are supported.
func compileFilter(filter string) (matcher, error) {
	packet, err := ldap.CompileFilter(filter)
	if err != nil {
		return nil, err
	}

	return compilePacket(packet)
}

func compilePacket(packet *ber.Packet) (matcher, error) {
	switch packet.Tag {
	case ldap.FilterAnd, ldap.FilterOr:
		children := make([]matcher, 0, len(packet.Children))

		for _, child := range packet.Children {
			m, err := compilePacket(child)
			if err != nil {
				return nil, err
			}

			children = append(children, m)
		}

		if packet.Tag == ldap.FilterAnd {
			return allOf(children), nil
		}

		return anyOf(children), nil
	case ldap.FilterNot:
		if len(packet.Children) != 1 {
			return nil, fmt.Errorf("ldapmock: malformed not filter")
		}

		inner, err := compilePacket(packet.Children[0])
		if err != nil {
			return nil, err
		}

		return func(entry *ldap.Entry) bool { return !inner(entry) }, nil
	case ldap.FilterEqualityMatch:
		if len(packet.Children) != 2 {
			return nil, fmt.Errorf("ldapmock: malformed equality filter")
		}

		attribute := packetString(packet.Children[0])
		value := packetString(packet.Children[1])

		return func(entry *ldap.Entry) bool {
			for _, v := range values(entry, attribute) {
				if strings.EqualFold(v, value) {
					return true
				}
			}

			return false
		}, nil
	case ldap.FilterPresent:
		attribute := packetString(packet)

		return func(entry *ldap.Entry) bool { return len(values(entry, attribute)) > 0 }, nil
	default:
		return nil, fmt.Errorf("ldapmock: unsupported filter %q", ldap.FilterMap[uint64(packet.Tag)])
	}
}

func allOf(children []matcher) matcher {
	return func(entry *ldap.Entry) bool {
		for _, m := range children {
			if !m(entry) {
				return false
			}
		}

		return true
	}
}

func anyOf(children []matcher) matcher {
	return func(entry *ldap.Entry) bool {
		for _, m := range children {
			if m(entry) {
				return true
			}
		}

		return false
	}
}

func values(entry *ldap.Entry, attribute string) []string {
	for _, attr := range entry.Attributes {
		if strings.EqualFold(attr.Name, attribute) {
			return attr.Values
		}
	}

	return nil
}

func packetString(packet *ber.Packet) string {
	if s, ok := packet.Value.(string); ok {
		return s
	}

	if packet.Data != nil {
		return packet.Data.String()
	}

	return ""
}
