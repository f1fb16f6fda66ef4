package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xtree/lib/infra"
	"github.com/benz9527/xtree/lib/tree"
	"github.com/benz9527/xtree/xlog"
)

type opCode uint8

const (
	opInsert opCode = iota
	opDelete
	opSearch
	opPreOrder
	opInOrder
	opPostOrder
	opSnapshot
	opProps
	opMin
	opMax
	opReset
)

var opNames = map[string]opCode{
	"insert":    opInsert,
	"delete":    opDelete,
	"search":    opSearch,
	"preorder":  opPreOrder,
	"inorder":   opInOrder,
	"postorder": opPostOrder,
	"snapshot":  opSnapshot,
	"props":     opProps,
	"min":       opMin,
	"max":       opMax,
	"reset":     opReset,
}

func (op opCode) withKeys() bool {
	return op <= opSearch
}

type command struct {
	op   opCode
	name string
	keys []int64
	line int
}

// parseScript reads one command per line, "#" starts a comment.
// Key commands take one or more integer keys:
//
//	insert 5 3 8
//	delete 3
//	search 8
//	inorder
func parseScript(r io.Reader) ([]command, error) {
	var (
		cmds []command
		err  error
	)
	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name := strings.ToLower(fields[0])
		op, ok := opNames[name]
		if !ok {
			err = multierr.Append(err, infra.NewErrorStack(fmt.Sprintf("line %d: unknown command %q", lineNo, fields[0])))
			continue
		}
		cmd := command{op: op, name: name, line: lineNo}
		if !op.withKeys() {
			if len(fields) > 1 {
				err = multierr.Append(err, infra.NewErrorStack(fmt.Sprintf("line %d: %s takes no key", lineNo, name)))
				continue
			}
			cmds = append(cmds, cmd)
			continue
		}
		if len(fields) == 1 {
			err = multierr.Append(err, infra.NewErrorStack(fmt.Sprintf("line %d: %s needs a key", lineNo, name)))
			continue
		}
		for _, f := range fields[1:] {
			key, pErr := strconv.ParseInt(f, 10, 64)
			if pErr != nil {
				err = multierr.Append(err, infra.NewErrorStack(fmt.Sprintf("line %d: invalid key %q", lineNo, f)))
				continue
			}
			cmd.keys = append(cmd.keys, key)
		}
		cmds = append(cmds, cmd)
	}
	if sErr := scanner.Err(); sErr != nil {
		err = multierr.Append(err, infra.WrapErrorStack(sErr))
	}
	if err != nil {
		return nil, err
	}
	return cmds, nil
}

type replayer struct {
	tree   tree.Tree[int64]
	logger xlog.XLogger
	out    io.Writer
}

// replay runs the commands in order. A missing or duplicate key is
// reported and does not stop the replay.
func (r *replayer) replay(ctx context.Context, cmds []command) error {
	for _, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return infra.WrapErrorStack(err)
		}
		if err := r.exec(cmd); err != nil {
			return err
		}
		r.logger.Debug("command replayed",
			zap.Int("line", cmd.line),
			zap.String("op", cmd.name),
			zap.Int64s("keys", cmd.keys),
			zap.Int64("size", r.tree.Len()),
		)
	}
	return nil
}

func (r *replayer) exec(cmd command) error {
	var err error
	switch cmd.op {
	case opInsert:
		for _, key := range cmd.keys {
			status, iErr := r.tree.Insert(key)
			r.printf("insert %d: %s", key, status)
			if iErr != nil && !errors.Is(iErr, tree.ErrDuplicateKey) {
				err = multierr.Append(err, iErr)
			}
		}
		r.snapshot()
	case opDelete:
		for _, key := range cmd.keys {
			trace, dErr := r.tree.Delete(key)
			switch {
			case errors.Is(dErr, tree.ErrKeyNotFound):
				r.printf("delete %d: not found path=%v", key, trace.Path)
			case dErr != nil:
				err = multierr.Append(err, dErr)
			case len(trace.Fixup) > 0:
				r.printf("delete %d: path=%v fixup=%v", key, trace.Path, trace.Fixup)
			default:
				r.printf("delete %d: path=%v", key, trace.Path)
			}
		}
		r.snapshot()
	case opSearch:
		for _, key := range cmd.keys {
			if _, path, sErr := r.tree.Search(key); sErr != nil {
				r.printf("search %d: not found path=%v", key, path)
			} else {
				r.printf("search %d: found path=%v", key, path)
			}
		}
	case opPreOrder:
		r.printf("preorder: %v", r.tree.PreOrder())
	case opInOrder:
		r.printf("inorder: %v", r.tree.InOrder())
	case opPostOrder:
		r.printf("postorder: %v", r.tree.PostOrder())
	case opSnapshot:
		r.snapshot()
	case opProps:
		p := r.tree.Properties()
		r.printf("props: height=%d nodes=%d leaves=%d internal=%d", p.Height, p.Nodes, p.Leaves, p.Internal)
	case opMin:
		r.extremum("min", r.tree.Min)
	case opMax:
		r.extremum("max", r.tree.Max)
	case opReset:
		r.tree.Release()
		r.printf("reset: %d", r.tree.Len())
	default:
		panic(fmt.Sprintf("[xtree] unknown op %d /* debug assertion */", cmd.op))
	}
	if err != nil {
		return infra.WrapErrorStack(fmt.Errorf("line %d: %w", cmd.line, err))
	}
	return nil
}

func (r *replayer) extremum(name string, fn func() (int64, bool)) {
	if key, ok := fn(); ok {
		r.printf("%s: %d", name, key)
		return
	}
	r.printf("%s: <empty>", name)
}

func (r *replayer) snapshot() {
	r.printf("tree: %s", renderSnapshot(r.tree.Snapshot(), r.tree.Kind() == tree.RedBlack))
}

func (r *replayer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format+"\n", args...)
}

// renderSnapshot prints the structure as nested "(key left right)"
// groups, "-" for an empty child. Red-black keys carry an R or B suffix.
func renderSnapshot[K infra.OrderedKey](s *tree.Snapshot[K], colored bool) string {
	if s == nil {
		return "-"
	}
	builder := &strings.Builder{}
	renderNode(builder, s, colored)
	return builder.String()
}

func renderNode[K infra.OrderedKey](builder *strings.Builder, s *tree.Snapshot[K], colored bool) {
	if s == nil {
		builder.WriteString("-")
		return
	}
	leaf := s.Left == nil && s.Right == nil
	if !leaf {
		builder.WriteString("(")
	}
	_, _ = fmt.Fprintf(builder, "%v", s.Key)
	if colored {
		if s.Color == tree.Red {
			builder.WriteString("R")
		} else {
			builder.WriteString("B")
		}
	}
	if leaf {
		return
	}
	builder.WriteString(" ")
	renderNode(builder, s.Left, colored)
	builder.WriteString(" ")
	renderNode(builder, s.Right, colored)
	builder.WriteString(")")
}
