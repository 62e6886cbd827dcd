// internal/shell/shell.go
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tamzrod/datastore/internal/datastore"
)

// ErrQuit is returned by Exec for the quit command.
var ErrQuit = errors.New("shell: quit")

// Shell is the operator front end: line commands over a datastore.
type Shell struct {
	store  *datastore.Store
	prompt string
}

func New(store *datastore.Store, prompt string) *Shell {
	return &Shell{store: store, prompt: prompt}
}

// Run reads commands from r until EOF, quit or ctx is done.
func (s *Shell) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		fmt.Fprint(w, s.prompt)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-scanErr:
			return err
		case line := <-lines:
			if err := s.Exec(ctx, line, w); errors.Is(err, ErrQuit) {
				return nil
			}
		}
	}
}

// Exec runs one command line. Failures are printed as FAIL lines and
// also returned.
func (s *Shell) Exec(ctx context.Context, line string, w io.Writer) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}

	var err error
	switch args[0] {
	case "help":
		s.help(w)
	case "ls_types":
		for _, t := range datastore.Types() {
			fmt.Fprintln(w, t)
		}
	case "ls":
		err = s.list(args[1:], w)
	case "read":
		err = s.read(ctx, args[1:], w)
	case "write":
		err = s.write(ctx, args[1:], w)
	case "quit", "exit":
		return ErrQuit
	default:
		err = usagef("unknown command %q", args[0])
	}

	if err != nil {
		fmt.Fprintf(w, "FAIL: %v\n", err)
		var ue *usageError
		if errors.As(err, &ue) {
			s.help(w)
		}
	}
	return err
}

// usageError makes Exec print the help text after the FAIL line.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func (s *Shell) help(w io.Writer) {
	types := make([]string, 0, datastore.TypeCount)
	for _, t := range datastore.Types() {
		types = append(types, t.String())
	}
	list := strings.Join(types, "|")

	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  ls_types                        list the datapoint types")
	fmt.Fprintf(w, "  ls <%s>\n", list)
	fmt.Fprintln(w, "                                  list the datapoints of a type")
	fmt.Fprintln(w, "  read <type> <name>              read a datapoint")
	fmt.Fprintln(w, "  write <type> <name> <value>     write a datapoint")
	fmt.Fprintln(w, "  quit")
}

func (s *Shell) resolve(typeName, name string) (datastore.Type, uint32, error) {
	t, err := datastore.ParseType(typeName)
	if err != nil {
		return 0, 0, usagef("unknown datapoint type (%s)", typeName)
	}
	id, ok := s.store.Catalog().Lookup(t, name)
	if !ok {
		return 0, 0, usagef("unknown datapoint name %s of type %s", strings.ToUpper(name), t)
	}
	return t, id, nil
}

func (s *Shell) list(args []string, w io.Writer) error {
	if len(args) != 1 {
		return usagef("ls takes a type")
	}
	t, err := datastore.ParseType(args[0])
	if err != nil {
		return usagef("unknown datapoint type (%s)", args[0])
	}
	for _, e := range s.store.Catalog().Entries(t) {
		fmt.Fprintln(w, e.Name)
	}
	return nil
}

func (s *Shell) read(ctx context.Context, args []string, w io.Writer) error {
	if len(args) != 2 {
		return usagef("read takes a type and a name")
	}
	t, id, err := s.resolve(args[0], args[1])
	if err != nil {
		return err
	}

	var v [1]datastore.Value
	if err := s.store.Read(ctx, t, id, v[:]); err != nil {
		return fmt.Errorf("error %d reading datapoint %s of type %s: %w",
			datastore.StatusOf(err).Code(), strings.ToUpper(args[1]), t, err)
	}

	fmt.Fprintf(w, "SUCCESS: %s = %s\n", strings.ToUpper(args[1]), v[0].Format(t))
	return nil
}

func (s *Shell) write(ctx context.Context, args []string, w io.Writer) error {
	if len(args) != 3 {
		return usagef("write takes a type, a name and a value")
	}
	t, id, err := s.resolve(args[0], args[1])
	if err != nil {
		return err
	}
	v, err := datastore.ParseValue(t, args[2])
	if err != nil {
		return err
	}

	name := strings.ToUpper(args[1])
	if err := s.store.Write(ctx, t, id, []datastore.Value{v}, true); err != nil {
		// A callback failure still commits the value.
		if errors.Is(err, datastore.ErrCallbackFailure) {
			fmt.Fprintf(w, "SUCCESS: %s = %s (notification failed: %v)\n", name, v.Format(t), err)
			return nil
		}
		return fmt.Errorf("error %d writing datapoint %s of type %s: %w",
			datastore.StatusOf(err).Code(), name, t, err)
	}

	fmt.Fprintf(w, "SUCCESS: %s = %s\n", name, v.Format(t))
	return nil
}
