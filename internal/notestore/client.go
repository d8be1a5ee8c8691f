// Package notestore wraps the note/resource collaborator (a Joplin-style
// data API). The pipeline only depends on the Client interface; transport
// retries live in this package, not in business logic.
package notestore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// NoteRef identifies a note by id with its title.
type NoteRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Note is a full note payload.
type Note struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	ParentID    string `json:"parent_id"`
	UpdatedTime int64  `json:"updated_time"`
}

// ResourceRef identifies an attached resource.
type ResourceRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Client is the minimal note/resource store contract the pipeline needs.
type Client interface {
	SearchNotesByTitle(pattern string) ([]NoteRef, error)
	GetNote(id string) (*Note, error)
	CreateNote(title, body, parentID string) (string, error)
	UpdateNoteBody(id, body string) error
	UploadResource(data []byte, title string) (string, error)
	DeleteResource(id string) error
	ListResources(noteID string) ([]ResourceRef, error)
	DownloadResourceBytes(id string) ([]byte, error)
}

// JoplinClient talks to a Joplin clipper-API compatible endpoint.
type JoplinClient struct {
	baseURL string
	token   string
	http    *http.Client
	retry   RetryPolicy
}

// NewJoplinClient builds a client for the given endpoint and API token.
func NewJoplinClient(baseURL, token string, retry RetryPolicy) *JoplinClient {
	return &JoplinClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		retry:   retry,
	}
}

func (c *JoplinClient) endpoint(path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	query.Set("token", c.token)
	return c.baseURL + path + "?" + query.Encode()
}

// do issues one HTTP request with the retry policy wrapped around the
// transport call only.
func (c *JoplinClient) do(method, rawURL string, contentType string, body []byte) ([]byte, error) {
	var out []byte
	err := c.retry.Do(func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequest(method, rawURL, reader)
		if err != nil {
			return Permanent(fmt.Errorf("failed to build request: %w", err))
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("server error %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		if resp.StatusCode >= 400 {
			return Permanent(fmt.Errorf("request rejected %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
		}
		out = data
		return nil
	})
	return out, err
}

type searchResponse struct {
	Items   []NoteRef `json:"items"`
	HasMore bool      `json:"has_more"`
}

// SearchNotesByTitle returns all notes whose title matches the pattern.
func (c *JoplinClient) SearchNotesByTitle(pattern string) ([]NoteRef, error) {
	var refs []NoteRef
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("query", fmt.Sprintf("title:%q", pattern))
		q.Set("type", "note")
		q.Set("page", fmt.Sprintf("%d", page))
		data, err := c.do(http.MethodGet, c.endpoint("/search", q), "", nil)
		if err != nil {
			return nil, fmt.Errorf("failed to search notes: %w", err)
		}
		var sr searchResponse
		if err := json.Unmarshal(data, &sr); err != nil {
			return nil, fmt.Errorf("failed to decode search response: %w", err)
		}
		refs = append(refs, sr.Items...)
		if !sr.HasMore {
			return refs, nil
		}
	}
}

// GetNote fetches one note with title, body and update time.
func (c *JoplinClient) GetNote(id string) (*Note, error) {
	q := url.Values{}
	q.Set("fields", "id,title,body,parent_id,updated_time")
	data, err := c.do(http.MethodGet, c.endpoint("/notes/"+id, q), "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get note %s: %w", id, err)
	}
	var note Note
	if err := json.Unmarshal(data, &note); err != nil {
		return nil, fmt.Errorf("failed to decode note: %w", err)
	}
	return &note, nil
}

// CreateNote creates a note and returns its id. parentID may be empty.
func (c *JoplinClient) CreateNote(title, body, parentID string) (string, error) {
	payload := map[string]string{"title": title, "body": body}
	if parentID != "" {
		payload["parent_id"] = parentID
	}
	data, _ := json.Marshal(payload)
	resp, err := c.do(http.MethodPost, c.endpoint("/notes", nil), "application/json", data)
	if err != nil {
		return "", fmt.Errorf("failed to create note: %w", err)
	}
	var note Note
	if err := json.Unmarshal(resp, &note); err != nil {
		return "", fmt.Errorf("failed to decode created note: %w", err)
	}
	return note.ID, nil
}

// UpdateNoteBody replaces a note's body.
func (c *JoplinClient) UpdateNoteBody(id, body string) error {
	data, _ := json.Marshal(map[string]string{"body": body})
	if _, err := c.do(http.MethodPut, c.endpoint("/notes/"+id, nil), "application/json", data); err != nil {
		return fmt.Errorf("failed to update note %s: %w", id, err)
	}
	return nil
}

// UploadResource stores an artifact and returns the resource id.
func (c *JoplinClient) UploadResource(data []byte, title string) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	props, _ := json.Marshal(map[string]string{"title": title})
	if err := w.WriteField("props", string(props)); err != nil {
		return "", fmt.Errorf("failed to write resource props: %w", err)
	}
	part, err := w.CreateFormFile("data", title)
	if err != nil {
		return "", fmt.Errorf("failed to create resource part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write resource data: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize resource form: %w", err)
	}

	resp, err := c.do(http.MethodPost, c.endpoint("/resources", nil), w.FormDataContentType(), buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("failed to upload resource %s: %w", title, err)
	}
	var ref ResourceRef
	if err := json.Unmarshal(resp, &ref); err != nil {
		return "", fmt.Errorf("failed to decode resource response: %w", err)
	}
	return ref.ID, nil
}

// DeleteResource removes a resource by id.
func (c *JoplinClient) DeleteResource(id string) error {
	if _, err := c.do(http.MethodDelete, c.endpoint("/resources/"+id, nil), "", nil); err != nil {
		return fmt.Errorf("failed to delete resource %s: %w", id, err)
	}
	return nil
}

type resourceListResponse struct {
	Items   []ResourceRef `json:"items"`
	HasMore bool          `json:"has_more"`
}

// ListResources returns the resources attached to a note.
func (c *JoplinClient) ListResources(noteID string) ([]ResourceRef, error) {
	var refs []ResourceRef
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", fmt.Sprintf("%d", page))
		data, err := c.do(http.MethodGet, c.endpoint("/notes/"+noteID+"/resources", q), "", nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list resources of %s: %w", noteID, err)
		}
		var lr resourceListResponse
		if err := json.Unmarshal(data, &lr); err != nil {
			return nil, fmt.Errorf("failed to decode resource list: %w", err)
		}
		refs = append(refs, lr.Items...)
		if !lr.HasMore {
			return refs, nil
		}
	}
}

// DownloadResourceBytes fetches a resource's file content.
func (c *JoplinClient) DownloadResourceBytes(id string) ([]byte, error) {
	data, err := c.do(http.MethodGet, c.endpoint("/resources/"+id+"/file", nil), "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download resource %s: %w", id, err)
	}
	return data, nil
}
