// Package models defines the persisted entity shapes shared by the crawler,
// rating engine, store gateway, rank reconstructor, and read API.
//
// Key Components:
//
//   - Contest: metadata for a single contest instance
//   - ParticipantRecord / PredictRecord / ArchiveRecord: per-user ranking rows
//   - User: cross-contest rating and attended-contest count
//   - Question: contest problem metadata plus real-time solve counts
//   - Submission: raw accepted/failed attempt used for rank reconstruction
//   - RealTimeRankEntry: one timestamped rank vector during contest replay
//
// All bson tags target the MongoDB collections opened by internal/store;
// json tags target the read API responses in internal/api.
package models
