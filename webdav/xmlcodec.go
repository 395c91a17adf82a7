// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/valyala/bytebufferpool"
)

const davNamespace = "DAV:"

// propfindRequest is the parsed body of a PROPFIND request (spec.md §4.2):
// either every property (AllProp), names only (PropName), or an explicit
// set of qualified names.
type propfindRequest struct {
	AllProp  bool
	PropName bool
	Names    []QName
}

type rawAnyName struct {
	XMLName xml.Name
}

// parsePropfindBody decodes a PROPFIND request body. A zero-length body is
// treated as an implicit allprop request, per RFC 4918 §9.1.
func parsePropfindBody(body io.Reader, contentLength int64) (*propfindRequest, error) {
	if contentLength == 0 {
		return &propfindRequest{AllProp: true}, nil
	}
	var raw struct {
		XMLName  xml.Name    `xml:"DAV: propfind"`
		AllProp  *struct{}   `xml:"DAV: allprop"`
		PropName *struct{}   `xml:"DAV: propname"`
		Prop     *struct {
			Items []rawAnyName `xml:",any"`
		} `xml:"DAV: prop"`
	}
	if err := xml.NewDecoder(body).Decode(&raw); err != nil {
		// An empty or malformed body is treated as an implicit allprop
		// request, per RFC 4918 §9.1.
		return &propfindRequest{AllProp: true}, nil
	}
	switch {
	case raw.PropName != nil:
		return &propfindRequest{PropName: true}, nil
	case raw.Prop != nil:
		pf := &propfindRequest{}
		for _, item := range raw.Prop.Items {
			pf.Names = append(pf.Names, QName{Namespace: item.XMLName.Space, Name: item.XMLName.Local})
		}
		return pf, nil
	default:
		return &propfindRequest{AllProp: true}, nil
	}
}

// proppatchOp is one set-or-remove instruction parsed from a PROPPATCH
// request body (spec.md §4.3). Set ops carry the new text value; remove ops
// only need the qualified name.
type proppatchOp struct {
	Remove bool
	Name   QName
	Value  string
}

// parseProppatchBody decodes a PROPPATCH request body into an ordered list
// of operations, applied in document order (each operation succeeds or
// fails on its own in handleProppatch; document order is what clients
// expect to see echoed back).
func parseProppatchBody(body io.Reader) ([]proppatchOp, error) {
	var raw struct {
		XMLName xml.Name `xml:"DAV: propertyupdate"`
		Set     []struct {
			Prop struct {
				Items []struct {
					XMLName xml.Name
					Value   string `xml:",chardata"`
				} `xml:",any"`
			} `xml:"DAV: prop"`
		} `xml:"DAV: set"`
		Remove []struct {
			Prop struct {
				Items []rawAnyName `xml:",any"`
			} `xml:"DAV: prop"`
		} `xml:"DAV: remove"`
	}
	if err := xml.NewDecoder(body).Decode(&raw); err != nil {
		return nil, newDAVError(KindBadRequest, "malformed PROPPATCH request body")
	}
	var ops []proppatchOp
	for _, set := range raw.Set {
		for _, item := range set.Prop.Items {
			ops = append(ops, proppatchOp{
				Name:  QName{Namespace: item.XMLName.Space, Name: item.XMLName.Local},
				Value: item.Value,
			})
		}
	}
	for _, rm := range raw.Remove {
		for _, item := range rm.Prop.Items {
			ops = append(ops, proppatchOp{
				Remove: true,
				Name:   QName{Namespace: item.XMLName.Space, Name: item.XMLName.Local},
			})
		}
	}
	return ops, nil
}

// parseLockInfoBody decodes a LOCK request's lockinfo body into a scope and
// an owner description (spec.md §4.5). An owner/href is preferred; falling
// back to the element's raw inner XML covers clients that send free text.
func parseLockInfoBody(body io.Reader) (scope LockScope, owner string, err error) {
	var raw struct {
		XMLName   xml.Name `xml:"DAV: lockinfo"`
		LockScope struct {
			Exclusive *struct{} `xml:"DAV: exclusive"`
			Shared    *struct{} `xml:"DAV: shared"`
		} `xml:"DAV: lockscope"`
		Owner struct {
			Href     string `xml:"DAV: href"`
			InnerXML string `xml:",innerxml"`
		} `xml:"DAV: owner"`
	}
	if err := xml.NewDecoder(body).Decode(&raw); err != nil {
		return 0, "", newDAVError(KindInternal, "malformed LOCK request body")
	}
	scope = ScopeExclusive
	if raw.LockScope.Shared != nil {
		scope = ScopeShared
	}
	owner = raw.Owner.Href
	if owner == "" {
		owner = strings.TrimSpace(raw.Owner.InnerXML)
	}
	return scope, owner, nil
}

// propOutcome is one property result destined for a PROPFIND or PROPPATCH
// multistatus propstat block.
type propOutcome struct {
	Name                     QName
	Status                   int
	Value                    string
	IsResourceTypeCollection bool
}

// responseEntry is one <D:response> element: a resource href plus every
// property outcome for it, which writeMultistatus groups by status into
// propstat blocks.
type responseEntry struct {
	Href  string
	Props []propOutcome
}

func collectNamespaces(entries []responseEntry) map[string]string {
	prefixes := map[string]string{davNamespace: "D"}
	seen := map[string]bool{davNamespace: true}
	var others []string
	for _, e := range entries {
		for _, p := range e.Props {
			ns := p.Name.Namespace
			if ns == "" {
				ns = davNamespace
			}
			if !seen[ns] {
				seen[ns] = true
				others = append(others, ns)
			}
		}
	}
	for i, ns := range others {
		prefixes[ns] = fmt.Sprintf("ns%d", i)
	}
	return prefixes
}

func groupByStatus(props []propOutcome) map[int][]propOutcome {
	m := map[int][]propOutcome{}
	for _, p := range props {
		m[p.Status] = append(m[p.Status], p)
	}
	return m
}

func statusLine(code int) string {
	return fmt.Sprintf("HTTP/1.1 %d %s", code, http.StatusText(code))
}

func escapeText(buf *bytebufferpool.ByteBuffer, s string) {
	xml.EscapeText(buf, []byte(s))
}

func writeProp(buf *bytebufferpool.ByteBuffer, prefixes map[string]string, p propOutcome) {
	ns := p.Name.Namespace
	if ns == "" {
		ns = davNamespace
	}
	tag := prefixes[ns] + ":" + p.Name.Name

	if p.Status != http.StatusOK {
		fmt.Fprintf(buf, "<%s/>", tag)
		return
	}
	if p.IsResourceTypeCollection {
		fmt.Fprintf(buf, "<%s><D:collection/></%s>", tag, tag)
		return
	}
	if p.Value == "" {
		fmt.Fprintf(buf, "<%s/>", tag)
		return
	}
	fmt.Fprintf(buf, "<%s>", tag)
	escapeText(buf, p.Value)
	fmt.Fprintf(buf, "</%s>", tag)
}

// writeMultistatus renders the 207 Multi-Status body for PROPFIND and
// PROPPATCH (spec.md §4.2/§4.3), auto-prefixing any non-DAV: namespace it
// encounters as "ns0", "ns1", ... in document order.
func writeMultistatus(w io.Writer, entries []responseEntry) error {
	prefixes := collectNamespaces(entries)

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString(xml.Header)
	buf.WriteString("<D:multistatus")
	nsOrder := make([]string, 0, len(prefixes))
	for ns := range prefixes {
		nsOrder = append(nsOrder, ns)
	}
	sort.Slice(nsOrder, func(i, j int) bool { return prefixes[nsOrder[i]] < prefixes[nsOrder[j]] })
	for _, ns := range nsOrder {
		fmt.Fprintf(buf, " xmlns:%s=%q", prefixes[ns], ns)
	}
	buf.WriteString(">")

	for _, e := range entries {
		buf.WriteString("<D:response><D:href>")
		escapeText(buf, e.Href)
		buf.WriteString("</D:href>")

		byStatus := groupByStatus(e.Props)
		statuses := make([]int, 0, len(byStatus))
		for s := range byStatus {
			statuses = append(statuses, s)
		}
		sort.Ints(statuses)

		for _, status := range statuses {
			buf.WriteString("<D:propstat><D:prop>")
			for _, p := range byStatus[status] {
				writeProp(buf, prefixes, p)
			}
			buf.WriteString("</D:prop><D:status>")
			buf.WriteString(statusLine(status))
			buf.WriteString("</D:status></D:propstat>")
		}
		buf.WriteString("</D:response>")
	}
	buf.WriteString("</D:multistatus>")

	_, err := w.Write(buf.Bytes())
	return err
}

// statusEntry is one <D:response> carrying only a status, used by DELETE,
// COPY and MOVE's partial-failure multistatus bodies (RFC 4918 §9.6.1,
// §9.8.5, §9.9.4) -- no propstat/prop wrapping, just href + status.
type statusEntry struct {
	Href   string
	Status int
}

// writeStatusMultistatus renders a 207 body made of plain href+status
// responses, for DELETE/COPY/MOVE partial failures.
func writeStatusMultistatus(w io.Writer, entries []statusEntry) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString(xml.Header)
	buf.WriteString(`<D:multistatus xmlns:D="DAV:">`)
	for _, e := range entries {
		buf.WriteString("<D:response><D:href>")
		escapeText(buf, e.Href)
		buf.WriteString("</D:href><D:status>")
		buf.WriteString(statusLine(e.Status))
		buf.WriteString("</D:status></D:response>")
	}
	buf.WriteString("</D:multistatus>")

	_, err := w.Write(buf.Bytes())
	return err
}

// writeLockDiscovery renders the <D:prop><D:lockdiscovery> body returned by
// LOCK (spec.md §4.5).
func writeLockDiscovery(w io.Writer, l *Lock, href string) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString(xml.Header)
	buf.WriteString(`<D:prop xmlns:D="DAV:"><D:lockdiscovery><D:activelock>`)
	buf.WriteString("<D:locktype><D:write/></D:locktype>")
	if l.Scope == ScopeShared {
		buf.WriteString("<D:lockscope><D:shared/></D:lockscope>")
	} else {
		buf.WriteString("<D:lockscope><D:exclusive/></D:lockscope>")
	}
	if l.Depth == DepthInfinity {
		buf.WriteString("<D:depth>infinity</D:depth>")
	} else {
		buf.WriteString("<D:depth>0</D:depth>")
	}
	buf.WriteString("<D:owner>")
	escapeText(buf, l.Owner)
	buf.WriteString("</D:owner>")
	if l.NoExpiry {
		buf.WriteString("<D:timeout>Infinite</D:timeout>")
	} else {
		fmt.Fprintf(buf, "<D:timeout>Second-%d</D:timeout>", l.remaining(time.Now()))
	}
	fmt.Fprintf(buf, "<D:locktoken><D:href>%s</D:href></D:locktoken>", l.Token)
	buf.WriteString("<D:lockroot><D:href>")
	escapeText(buf, href)
	buf.WriteString("</D:href></D:lockroot>")
	buf.WriteString("</D:activelock></D:lockdiscovery></D:prop>")

	_, err := w.Write(buf.Bytes())
	return err
}
