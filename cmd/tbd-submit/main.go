package main

import (
    "bytes"
    "encoding/json"
    "flag"
    "fmt"
    "net/http"
    "os"
    "time"

    "github.com/burnsgregm/TbD-V6/pkg/schema"
)

// Small CLI to push one task into a running dispatcher.
func main() {
    addr := flag.String("addr", "http://localhost:8080", "dispatcher base URL")
    source := flag.String("source", "", "source video uri (store://bucket/key)")
    output := flag.String("out", "", "output location (store://bucket)")
    client := flag.String("client", "cli", "client identifier")
    taskID := flag.String("task", "", "explicit task id (optional, for idempotent resubmission)")
    flag.Parse()

    if *source == "" || *output == "" {
        fatalf("both -source and -out are required")
    }

    spec := schema.TaskSpec{
        TaskID:         *taskID,
        ClientID:       *client,
        SourceURI:      *source,
        OutputLocation: *output,
    }
    body, _ := json.Marshal(spec)

    httpc := &http.Client{Timeout: 10 * time.Second}
    resp, err := httpc.Post(*addr+"/submit", "application/json", bytes.NewReader(body))
    if err != nil {
        fatalf("submit: %v", err)
    }
    defer resp.Body.Close()

    var out map[string]any
    if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
        fatalf("decode response: %v", err)
    }
    if resp.StatusCode != http.StatusAccepted {
        fatalf("rejected (%d): %v", resp.StatusCode, out)
    }
    fmt.Printf("accepted: task_id=%v status=%v\n", out["task_id"], out["status"])
}

func fatalf(format string, a ...any) {
    _, _ = fmt.Fprintf(os.Stderr, format+"\n", a...)
    os.Exit(1)
}
