// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"bytes"
	"context"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/kurenai-dav/touka"
)

func newTestHandler(t *testing.T, fs FileSystem) *Handler {
	t.Helper()
	h, err := NewHandler(&Config{Prefix: "/", FileSystem: fs})
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	return h
}

func setupTestServer(handler *Handler) *touka.Engine {
	r := touka.New()
	r.HandleFunc(webdavMethods, "/*path", handler.ServeTouka)
	return r
}

func TestHandleOptions(t *testing.T) {
	handler := newTestHandler(t, NewMemFS())
	r := setupTestServer(handler)

	req, _ := http.NewRequest("OPTIONS", "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d; got %d", http.StatusOK, w.Code)
	}
	if w.Header().Get("DAV") != "1, 2" {
		t.Errorf("Expected DAV header '1, 2'; got '%s'", w.Header().Get("DAV"))
	}
	expectedAllow := "OPTIONS, GET, HEAD, PUT, DELETE, MKCOL, COPY, MOVE, PROPFIND, PROPPATCH, LOCK, UNLOCK"
	if w.Header().Get("Allow") != expectedAllow {
		t.Errorf("Expected Allow header '%s'; got '%s'", expectedAllow, w.Header().Get("Allow"))
	}
}

func TestHandleMkcol(t *testing.T) {
	fs := NewMemFS()
	handler := newTestHandler(t, fs)
	r := setupTestServer(handler)

	req, _ := http.NewRequest("MKCOL", "/testdir", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status %d; got %d", http.StatusCreated, w.Code)
	}

	info, err := fs.Stat(context.Background(), "/testdir")
	if err != nil {
		t.Fatalf("fs.Stat failed: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("Expected '/testdir' to be a directory")
	}
}

func TestHandleMkcolOverExisting(t *testing.T) {
	fs := NewMemFS()
	handler := newTestHandler(t, fs)
	r := setupTestServer(handler)

	fs.Mkdir(context.Background(), "/testdir", 0755)

	req, _ := http.NewRequest("MKCOL", "/testdir", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status %d; got %d", http.StatusMethodNotAllowed, w.Code)
	}
}

// testMultistatus is a decode-only mirror of the wire shape writeMultistatus
// produces; it exists purely so tests can assert on the XML without
// depending on the encoder's internal types.
type testMultistatus struct {
	XMLName   xml.Name `xml:"multistatus"`
	Responses []struct {
		Href      string `xml:"href"`
		Propstats []struct {
			Status string `xml:"status"`
			Prop   struct {
				Items []struct {
					XMLName xml.Name
					Inner   string `xml:",innerxml"`
				} `xml:",any"`
			} `xml:"prop"`
		} `xml:"propstat"`
	} `xml:"response"`
}

func TestHandlePropfind(t *testing.T) {
	fs := NewMemFS()
	handler := newTestHandler(t, fs)
	r := setupTestServer(handler)

	ctx := context.Background()
	fs.Mkdir(ctx, "/testdir", 0755)
	file, _ := fs.OpenFile(ctx, "/testdir/testfile", os.O_CREATE|os.O_WRONLY, 0644)
	file.Write([]byte("test content"))
	file.Close()

	propfindBody := `<?xml version="1.0" encoding="UTF-8"?>
<D:propfind xmlns:D="DAV:">
  <D:allprop/>
</D:propfind>`
	req, _ := http.NewRequest("PROPFIND", "/testdir", bytes.NewBufferString(propfindBody))
	req.Header.Set("Depth", "1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusMultiStatus {
		t.Fatalf("Expected status %d; got %d", http.StatusMultiStatus, w.Code)
	}

	var ms testMultistatus
	if err := xml.Unmarshal(w.Body.Bytes(), &ms); err != nil {
		t.Fatalf("Failed to unmarshal propfind response: %v", err)
	}
	if len(ms.Responses) != 2 {
		t.Fatalf("Expected 2 responses; got %d", len(ms.Responses))
	}

	var sawDir, sawFile bool
	for _, resp := range ms.Responses {
		switch resp.Href {
		case "/testdir/":
			sawDir = true
		case "/testdir/testfile":
			sawFile = true
			for _, ps := range resp.Propstats {
				for _, item := range ps.Items {
					if item.XMLName.Local == "getcontentlength" && item.Inner != "12" {
						t.Errorf("Expected content length 12; got %s", item.Inner)
					}
				}
			}
		}
	}
	if !sawDir {
		t.Error("Response for directory not found")
	}
	if !sawFile {
		t.Error("Response for file not found")
	}
}

func TestHandlePutGetDelete(t *testing.T) {
	fs := NewMemFS()
	handler := newTestHandler(t, fs)
	r := setupTestServer(handler)

	putReq, _ := http.NewRequest("PUT", "/test.txt", bytes.NewBufferString("hello"))
	putRec := httptest.NewRecorder()
	r.ServeHTTP(putRec, putReq)
	if putRec.Code != http.StatusCreated {
		t.Errorf("PUT: expected status %d, got %d", http.StatusCreated, putRec.Code)
	}

	getReq, _ := http.NewRequest("GET", "/test.txt", nil)
	getRec := httptest.NewRecorder()
	r.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Errorf("GET: expected status %d, got %d", http.StatusOK, getRec.Code)
	}
	if getRec.Body.String() != "hello" {
		t.Errorf("GET: expected body 'hello', got '%s'", getRec.Body.String())
	}
	if getRec.Header().Get("ETag") == "" {
		t.Error("GET: expected an ETag header")
	}

	delReq, _ := http.NewRequest("DELETE", "/test.txt", nil)
	delRec := httptest.NewRecorder()
	r.ServeHTTP(delRec, delReq)
	if delRec.Code != http.StatusNoContent {
		t.Errorf("DELETE: expected status %d, got %d", http.StatusNoContent, delRec.Code)
	}

	_, err := fs.Stat(context.Background(), "/test.txt")
	if !os.IsNotExist(err) {
		t.Errorf("File should have been deleted, but stat returned: %v", err)
	}
}

func TestHandleGetRange(t *testing.T) {
	fs := NewMemFS()
	handler := newTestHandler(t, fs)
	r := setupTestServer(handler)

	putReq, _ := http.NewRequest("PUT", "/range.txt", bytes.NewBufferString("0123456789"))
	putRec := httptest.NewRecorder()
	r.ServeHTTP(putRec, putReq)

	getReq, _ := http.NewRequest("GET", "/range.txt", nil)
	getReq.Header.Set("Range", "bytes=2-4")
	getRec := httptest.NewRecorder()
	r.ServeHTTP(getRec, getReq)

	if getRec.Code != http.StatusPartialContent {
		t.Fatalf("Expected status %d; got %d", http.StatusPartialContent, getRec.Code)
	}
	if getRec.Body.String() != "234" {
		t.Errorf("Expected body '234'; got '%s'", getRec.Body.String())
	}
	if getRec.Header().Get("Content-Range") != "bytes 2-4/10" {
		t.Errorf("Unexpected Content-Range: %s", getRec.Header().Get("Content-Range"))
	}
}

func TestHandleCopyMove(t *testing.T) {
	fs := NewMemFS()
	handler := newTestHandler(t, fs)
	r := setupTestServer(handler)

	putReq, _ := http.NewRequest("PUT", "/src.txt", bytes.NewBufferString("copy me"))
	putRec := httptest.NewRecorder()
	r.ServeHTTP(putRec, putReq)

	copyReq, _ := http.NewRequest("COPY", "/src.txt", nil)
	copyReq.Header.Set("Destination", "/dest.txt")
	copyRec := httptest.NewRecorder()
	r.ServeHTTP(copyRec, copyReq)
	if copyRec.Code != http.StatusCreated {
		t.Errorf("COPY: expected status %d, got %d", http.StatusCreated, copyRec.Code)
	}

	info, err := fs.Stat(context.Background(), "/dest.txt")
	if err != nil {
		t.Fatalf("Stat on copied file failed: %v", err)
	}
	if info.Size() != int64(len("copy me")) {
		t.Errorf("Copied file has wrong size")
	}

	moveReq, _ := http.NewRequest("MOVE", "/dest.txt", nil)
	moveReq.Header.Set("Destination", "/moved.txt")
	moveRec := httptest.NewRecorder()
	r.ServeHTTP(moveRec, moveReq)
	if moveRec.Code != http.StatusCreated {
		t.Errorf("MOVE: expected status %d, got %d", http.StatusCreated, moveRec.Code)
	}

	if _, err := fs.Stat(context.Background(), "/dest.txt"); !os.IsNotExist(err) {
		t.Error("Original file should have been removed after move")
	}
	if _, err := fs.Stat(context.Background(), "/moved.txt"); err != nil {
		t.Error("Moved file not found")
	}
}

func TestHandleLockUnlock(t *testing.T) {
	fs := NewMemFS()
	handler := newTestHandler(t, fs)
	r := setupTestServer(handler)

	ctx := context.Background()
	f, _ := fs.OpenFile(ctx, "/locked.txt", os.O_CREATE|os.O_WRONLY, 0644)
	f.Write([]byte("x"))
	f.Close()

	lockBody := `<?xml version="1.0" encoding="UTF-8"?>
<D:lockinfo xmlns:D="DAV:">
  <D:lockscope><D:exclusive/></D:lockscope>
  <D:locktype><D:write/></D:locktype>
  <D:owner><D:href>mailto:test@example.com</D:href></D:owner>
</D:lockinfo>`
	lockReq, _ := http.NewRequest("LOCK", "/locked.txt", bytes.NewBufferString(lockBody))
	lockRec := httptest.NewRecorder()
	r.ServeHTTP(lockRec, lockReq)
	if lockRec.Code != http.StatusOK {
		t.Fatalf("LOCK: expected status %d, got %d", http.StatusOK, lockRec.Code)
	}
	token := lockRec.Header().Get("Lock-Token")
	if token == "" {
		t.Fatal("LOCK: expected a Lock-Token header")
	}

	putReq, _ := http.NewRequest("PUT", "/locked.txt", bytes.NewBufferString("blocked"))
	putRec := httptest.NewRecorder()
	r.ServeHTTP(putRec, putReq)
	if putRec.Code != http.StatusLocked {
		t.Errorf("PUT without token: expected status %d, got %d", http.StatusLocked, putRec.Code)
	}

	putReq2, _ := http.NewRequest("PUT", "/locked.txt", bytes.NewBufferString("allowed"))
	putReq2.Header.Set("If", "("+token+")")
	putRec2 := httptest.NewRecorder()
	r.ServeHTTP(putRec2, putReq2)
	if putRec2.Code != http.StatusNoContent {
		t.Errorf("PUT with token: expected status %d, got %d", http.StatusNoContent, putRec2.Code)
	}

	unlockReq, _ := http.NewRequest("UNLOCK", "/locked.txt", nil)
	unlockReq.Header.Set("Lock-Token", token)
	unlockRec := httptest.NewRecorder()
	r.ServeHTTP(unlockRec, unlockReq)
	if unlockRec.Code != http.StatusNoContent {
		t.Errorf("UNLOCK: expected status %d, got %d", http.StatusNoContent, unlockRec.Code)
	}
}
