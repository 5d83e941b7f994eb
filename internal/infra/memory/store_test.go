package memory_test

import (
	"testing"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/memory"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/storetest"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/port"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) port.Store { return memory.New() })
}
