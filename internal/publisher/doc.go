// Package publisher pushes one local video to the publishing platform using
// its four-step upload protocol:
//
//  1. transfer the file as multipart field Filedata and read back the video id
//  2. send the duration signal (best effort, response ignored)
//  3. list the auto-extracted thumbnails and pick the first one, numeric ids
//     lowest first
//  4. submit the publish form with title, description, tags, channel ids,
//     file_meta and the chosen thumbnail
//
// Any failing required step aborts the run with a descriptive error. There is
// no rollback of platform-side artifacts. Persisting the outcome is the
// caller's job.
package publisher
