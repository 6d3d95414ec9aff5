package demo

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/nemanja-m/gomr/internal/jobfuncs"
	"github.com/nemanja-m/gomr/internal/shared/logging"
	"github.com/nemanja-m/gomr/internal/tracker/core"
)

// LocalExecutor runs MAP and REDUCE tasks for real against the local
// filesystem. Unlike a whole-job-at-once engine, it runs the individual
// MAP/REDUCE/SETUP/COMMIT/ABORT tasks the JobTracker dispatches one at a
// time.
type LocalExecutor struct {
	dirs       *JobDirectory
	onFinished OnFinishedFunc
	logger     logging.Logger
	pool       *workerPool

	mu       sync.Mutex
	jobInfos map[core.JobId]core.JobInfo
}

func NewLocalExecutor(dirs *JobDirectory, onFinished OnFinishedFunc, logger logging.Logger, numWorkers int) *LocalExecutor {
	e := &LocalExecutor{
		dirs:       dirs,
		onFinished: onFinished,
		logger:     logger,
		pool:       newWorkerPool(numWorkers),
		jobInfos:   make(map[core.JobId]core.JobInfo),
	}
	e.pool.start()
	return e
}

// OnJobStateChanged caches each job's JobInfo so Run, which only receives
// a JobId and TaskInfo per spec §6, can still resolve the job's function
// name, reducer count, and output path.
func (e *LocalExecutor) OnJobStateChanged(meta *core.JobMetadata) {
	e.mu.Lock()
	e.jobInfos[meta.JobId] = meta.JobInfo
	e.mu.Unlock()
}

func (e *LocalExecutor) jobInfo(jobId core.JobId) (core.JobInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	info, ok := e.jobInfos[jobId]
	return info, ok
}

func (e *LocalExecutor) Run(job core.JobId, tasks []core.TaskInfo) {
	for _, task := range tasks {
		task := task
		e.pool.submit(priorityFor(task.Type), func() { e.runTask(job, task) })
	}
}

// priorityFor ranks singleton lifecycle tasks above MAP, and MAP above
// REDUCE: reduce tasks have the lowest priority since they can only start
// once every mapper feeding them has finished.
func priorityFor(t core.TaskType) taskPriority {
	switch t {
	case core.TaskTypeSetup, core.TaskTypeCommit, core.TaskTypeAbort:
		return priorityHigh
	case core.TaskTypeMap, core.TaskTypeCombine:
		return priorityMedium
	case core.TaskTypeReduce:
		return priorityLow
	default:
		return priorityMedium
	}
}

func (e *LocalExecutor) runTask(job core.JobId, task core.TaskInfo) {
	switch task.Type {
	case core.TaskTypeMap:
		e.runMap(job, task)
	case core.TaskTypeReduce:
		e.runReduce(job, task)
	default:
		// SETUP/COMBINE/COMMIT/ABORT have no local-filesystem work of their
		// own in this demo stack; report them done immediately.
		e.onFinished(task, core.TaskStatusCompleted, nil)
	}
}

func (e *LocalExecutor) runMap(job core.JobId, task core.TaskInfo) {
	info, ok := e.jobInfo(job)
	if !ok {
		e.logger.Warn("map task has no cached job info", "job", job.String())
		e.onFinished(task, core.TaskStatusFailed, nil)
		return
	}
	dir, ok := e.dirs.get(job)
	if !ok {
		e.logger.Warn("map task has no staging directory", "job", job.String())
		e.onFinished(task, core.TaskStatusFailed, nil)
		return
	}
	jobFunc, err := resolveJobFunc(info)
	if err != nil {
		e.logger.Error("map task could not resolve job function", "job", job.String(), "error", err)
		e.onFinished(task, core.TaskStatusFailed, nil)
		return
	}

	lines, err := readLines(task.Split.Path)
	if err != nil {
		e.logger.Error("map task failed to read split", "job", job.String(), "split", task.Split.Path, "error", err)
		e.onFinished(task, core.TaskStatusFailed, nil)
		return
	}

	numReducers := info.Config.NumReducers
	partitions := make(map[int][]jobfuncs.KeyValue, numReducers)
	emitted := 0
	for i, line := range lines {
		key := fmt.Sprintf("%s:%d", task.Split.Path, i+1)
		for _, kv := range jobFunc.Map(key, line) {
			part := partition(kv.Key, numReducers)
			partitions[part] = append(partitions[part], kv)
			emitted++
		}
	}

	for part, kvs := range partitions {
		if err := writeShuffleFile(dir, task.TaskNumber, part, kvs); err != nil {
			e.logger.Error("map task failed to write shuffle output", "job", job.String(), "error", err)
			e.onFinished(task, core.TaskStatusFailed, nil)
			return
		}
	}

	e.onFinished(task, core.TaskStatusCompleted, core.Counters{
		"map_input_lines":    int64(len(lines)),
		"map_output_records": int64(emitted),
	})
}

func (e *LocalExecutor) runReduce(job core.JobId, task core.TaskInfo) {
	info, ok := e.jobInfo(job)
	if !ok {
		e.onFinished(task, core.TaskStatusFailed, nil)
		return
	}
	dir, ok := e.dirs.get(job)
	if !ok {
		e.onFinished(task, core.TaskStatusFailed, nil)
		return
	}
	jobFunc, err := resolveJobFunc(info)
	if err != nil {
		e.onFinished(task, core.TaskStatusFailed, nil)
		return
	}

	kvs, err := readShuffleFiles(dir, task.Reducer)
	if err != nil {
		e.logger.Error("reduce task failed to read shuffle input", "job", job.String(), "error", err)
		e.onFinished(task, core.TaskStatusFailed, nil)
		return
	}
	sort.Slice(kvs, func(i, j int) bool { return kvs[i].Key < kvs[j].Key })

	results := reduceSorted(kvs, jobFunc.Reduce)

	if err := os.MkdirAll(info.Output.Path, 0o755); err != nil {
		e.logger.Error("reduce task failed to create output dir", "job", job.String(), "error", err)
		e.onFinished(task, core.TaskStatusFailed, nil)
		return
	}
	outPath := filepath.Join(info.Output.Path, fmt.Sprintf("part-%05d.tsv", task.Reducer))
	if err := writeResults(outPath, results); err != nil {
		e.logger.Error("reduce task failed to write output", "job", job.String(), "error", err)
		e.onFinished(task, core.TaskStatusFailed, nil)
		return
	}

	e.onFinished(task, core.TaskStatusCompleted, core.Counters{
		"reduce_output_records": int64(len(results)),
	})
}

func (e *LocalExecutor) CancelTasks(job core.JobId) {
	e.logger.Info("cancelling tasks", "job", job.String())
}

// resolveJobFunc picks the map/reduce function pair for info.Name,
// special-casing grep since its match pattern is supplied per job rather
// than fixed at registration time.
func resolveJobFunc(info core.JobInfo) (jobfuncs.JobFunc, error) {
	if info.Name == "grep" {
		return jobfuncs.NewGrepJob(info.Metadata["pattern"]), nil
	}
	return jobfuncs.Get(info.Name)
}

// partition routes a key to a reducer via an FNV-1a hash mod reducer count.
func partition(key string, numReducers int) int {
	if numReducers <= 0 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32()) % numReducers
}
