// Package uploads ties an episode's publish record to the remote publisher.
//
// Service.PublishEpisode moves the record through pending, uploading and
// published or failed around one publisher call. UploadEpisode is the manual
// entry point used to seed a series; the scheduler uses PublishEpisode
// directly once it has picked the next episode.
package uploads
