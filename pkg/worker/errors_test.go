package worker

import (
    "errors"
    "fmt"
    "testing"

    "github.com/burnsgregm/TbD-V6/pkg/broker"
)

func TestClassify(t *testing.T) {
    cases := []struct {
        err  error
        want broker.Disposition
    }{
        {nil, broker.Ack},
        {fmt.Errorf("%w: bad json", ErrMalformedMessage), broker.AckDrop},
        {fmt.Errorf("%w: t1", ErrDuplicateTask), broker.AckDrop},
        {fmt.Errorf("%w: upload refused", ErrPersistence), broker.Redeliver},
        {errors.New("segmenter timeout"), broker.Redeliver},
    }
    for i, tc := range cases {
        if got := Classify(tc.err); got != tc.want {
            t.Fatalf("case %d (%v): got %v, want %v", i, tc.err, got, tc.want)
        }
    }
}
