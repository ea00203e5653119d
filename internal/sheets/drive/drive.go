// Package drive counts and stores recordings in Google Drive. Each piece has
// a folder under a shared parent; recordings are named "<person>_<piece>_<ts>.ext".
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"ensemble/internal/core"
	ports "ensemble/internal/sheets"
	"ensemble/internal/sheets/google"

	"google.golang.org/api/googleapi"
	gdrive "google.golang.org/api/drive/v3"
)

const folderMimeType = "application/vnd.google-apps.folder"

type Client struct {
	svc      *gdrive.Service
	parentID string
}

var (
	_ ports.UploadCounter = (*Client)(nil)
	_ ports.Uploader      = (*Client)(nil)
)

// New creates a Drive client scoped to the parent folder.
func New(ctx context.Context, parentID string, creds google.Credentials) (*Client, error) {
	if strings.TrimSpace(parentID) == "" {
		return nil, errors.New("missing GOOGLE_DRIVE_PARENT_FOLDER_ID")
	}
	opts, err := google.ClientOptions(ctx, creds, gdrive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("drive credentials: %w", err)
	}
	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	slog.InfoContext(ctx, "Google Drive service created successfully")
	return &Client{svc: svc, parentID: strings.TrimSpace(parentID)}, nil
}

// findFolder returns the ID of the piece folder, or "" if there is none.
// With duplicate folder names the first one returned wins.
func (c *Client) findFolder(ctx context.Context, piece string) (string, error) {
	if c.svc == nil {
		return "", errors.New("drive service not initialized")
	}
	list, err := c.svc.Files.List().
		Q(folderQuery(c.parentID, piece)).
		Fields("files(id)").
		Spaces("drive").
		PageSize(1).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("find folder %s: %w", piece, err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

func (c *Client) eachFileName(ctx context.Context, q string, fn func(name string)) error {
	return c.svc.Files.List().
		Q(q).
		Fields("nextPageToken, files(name)").
		Spaces("drive").
		PageSize(1000).
		Pages(ctx, func(page *gdrive.FileList) error {
			for _, f := range page.Files {
				fn(f.Name)
			}
			return nil
		})
}

// CountsByPerson implements ports.UploadCounter.
func (c *Client) CountsByPerson(ctx context.Context, pieces []string) (map[string]int, error) {
	out := make(map[string]int)
	for _, piece := range pieces {
		folderID, err := c.findFolder(ctx, piece)
		if err != nil {
			return nil, err
		}
		if folderID == "" {
			continue
		}
		err = c.eachFileName(ctx, filesQuery(folderID, ""), func(name string) {
			if person := uploaderName(name); person != "" {
				out[person]++
			}
		})
		if err != nil {
			return nil, fmt.Errorf("list files of %s: %w", piece, err)
		}
	}
	return out, nil
}

// CountsForPerson implements ports.UploadCounter.
func (c *Client) CountsForPerson(ctx context.Context, name string, pieces []string) (map[string]int, error) {
	out := make(map[string]int, len(pieces))
	for _, piece := range pieces {
		out[piece] = 0
		folderID, err := c.findFolder(ctx, piece)
		if err != nil {
			return nil, err
		}
		if folderID == "" {
			continue
		}
		n := 0
		if err := c.eachFileName(ctx, filesQuery(folderID, name+"_"), func(string) { n++ }); err != nil {
			return nil, fmt.Errorf("list files of %s: %w", piece, err)
		}
		out[piece] = n
	}
	return out, nil
}

// EnsureFolder implements ports.Uploader.
func (c *Client) EnsureFolder(ctx context.Context, piece string) (string, error) {
	id, err := c.findFolder(ctx, piece)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	f, err := c.svc.Files.Create(&gdrive.File{
		Name:     piece,
		MimeType: folderMimeType,
		Parents:  []string{c.parentID},
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create folder %s: %w", piece, err)
	}
	slog.InfoContext(ctx, "Created piece folder", "piece", piece, "folder_id", f.Id)
	return f.Id, nil
}

// Upload implements ports.Uploader.
func (c *Client) Upload(ctx context.Context, folderID, fileName, mimeType string, body io.Reader) (core.UploadedFile, error) {
	if c.svc == nil {
		return core.UploadedFile{}, errors.New("drive service not initialized")
	}
	f, err := c.svc.Files.Create(&gdrive.File{
		Name:    fileName,
		Parents: []string{folderID},
	}).Media(body, googleapi.ContentType(mimeType)).
		Fields("id, name, webViewLink").
		Context(ctx).Do()
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("upload %s: %w", fileName, err)
	}
	return core.UploadedFile{ID: f.Id, Name: f.Name, WebViewLink: f.WebViewLink}, nil
}

// uploaderName returns the person prefix of a recording file name.
func uploaderName(fileName string) string {
	name, _, _ := strings.Cut(fileName, "_")
	return strings.TrimSpace(name)
}

// escapeQuery escapes a value for use inside single quotes in a Drive query.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func folderQuery(parentID, piece string) string {
	return fmt.Sprintf("mimeType='%s' and name='%s' and '%s' in parents and trashed=false",
		folderMimeType, escapeQuery(piece), escapeQuery(parentID))
}

func filesQuery(folderID, nameContains string) string {
	q := fmt.Sprintf("'%s' in parents and trashed=false and mimeType!='%s'", escapeQuery(folderID), folderMimeType)
	if nameContains != "" {
		q += fmt.Sprintf(" and name contains '%s'", escapeQuery(nameContains))
	}
	return q
}
