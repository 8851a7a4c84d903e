package bridge

import "github.com/xraph/bridge/id"

// JobID is the identifier assigned to every submitted job.
type JobID = id.JobID

// WorkerID identifies one execution unit of the worker pool.
type WorkerID = id.WorkerID
