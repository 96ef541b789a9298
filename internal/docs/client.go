// Package docs reads and publishes Google Docs documents on behalf of the
// tailoring pipeline.
package docs

import (
	"context"
	"time"

	gdocs "google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"jobtailor/internal/errors"
)

// Client talks to the Google Docs and Drive APIs
type Client struct {
	docs   *gdocs.Service
	drive  *drive.Service
	logger *errors.Logger
}

// NewClient creates a client for both APIs. The options apply to both
// services, so a single option.WithTokenSource authenticates them.
func NewClient(ctx context.Context, logger *errors.Logger, opts ...option.ClientOption) (*Client, error) {
	docsService, err := gdocs.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to create Google Docs service", err)
	}

	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to create Google Drive service", err)
	}

	return &Client{
		docs:   docsService,
		drive:  driveService,
		logger: logger,
	}, nil
}

// GetDocumentContent returns the plain text of a document
func (c *Client) GetDocumentContent(ctx context.Context, documentID string) (string, error) {
	if documentID == "" {
		return "", errors.NewValidationError(errors.ErrCodeMissingDocumentID, "document id is required", nil)
	}

	start := time.Now()
	doc, err := c.docs.Documents.Get(documentID).Context(ctx).Do()
	if err != nil {
		return "", errors.NewDocumentError(errors.ErrCodeDocumentFetchFailed,
			"failed to fetch document", err).WithContext("document_id", documentID)
	}

	text := DocumentText(doc)
	c.logger.Debug("Fetched document",
		"document_id", documentID,
		"title", doc.Title,
		"characters", len(text),
		"duration_ms", time.Since(start).Milliseconds())

	return text, nil
}

// CreateDocument creates a document holding content and returns its web
// link. With a folderID the document is moved into that Drive folder.
func (c *Client) CreateDocument(ctx context.Context, title, content, folderID string) (string, error) {
	created, err := c.docs.Documents.Create(&gdocs.Document{Title: title}).Context(ctx).Do()
	if err != nil {
		return "", createError("failed to create document", err).WithContext("title", title)
	}
	documentID := created.DocumentId

	if content != "" {
		update := &gdocs.BatchUpdateDocumentRequest{
			Requests: []*gdocs.Request{{
				InsertText: &gdocs.InsertTextRequest{
					// Index 1 is the start of the body; 0 is the section break.
					Location: &gdocs.Location{Index: 1},
					Text:     content,
				},
			}},
		}
		if _, err := c.docs.Documents.BatchUpdate(documentID, update).Context(ctx).Do(); err != nil {
			return "", createError("failed to insert document text", err).WithContext("document_id", documentID)
		}
	}

	if folderID != "" {
		_, err := c.drive.Files.Update(documentID, &drive.File{}).
			AddParents(folderID).
			Fields("id, parents").
			Context(ctx).
			Do()
		if err != nil {
			return "", createError("failed to move document to folder", err).
				WithContext("document_id", documentID).
				WithContext("folder_id", folderID)
		}
	}

	file, err := c.drive.Files.Get(documentID).Fields("webViewLink").Context(ctx).Do()
	if err != nil {
		return "", createError("failed to get document link", err).WithContext("document_id", documentID)
	}

	c.logger.Info("Created document",
		"document_id", documentID,
		"title", title,
		"folder_id", folderID,
		"characters", len(content))

	return file.WebViewLink, nil
}

func createError(message string, cause error) *errors.AppError {
	return errors.NewDocumentError(errors.ErrCodeDocumentCreateFailed, message, cause)
}
