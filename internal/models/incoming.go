package models

import "io"

// IncomingFile is one raw file handed to the pipeline by the presentation
// layer (picker or drop). Open is called at most once per upload attempt.
type IncomingFile struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}
