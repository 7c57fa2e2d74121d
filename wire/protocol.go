package wire

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	uuid "github.com/satori/go.uuid"

	"github.com/paoloose/vennbase"
	"github.com/paoloose/vennbase/resize"
)

// headerReadTimeout bounds how long a connection may take to send the
// next request's header line before it is dropped.
const headerReadTimeout = 3 * time.Second

// handleConnection serves requests from conn until it is closed or a
// request's framing breaks down. One connection may carry multiple
// query/get requests; a save request consumes the remainder of the
// stream (its body has no length prefix) and ends the loop.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(headerReadTimeout)); err != nil {
			return
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		// the body of a request (tags, bytes) is not subject to the
		// header timeout; a partial body simply fails the request via
		// a short read below.
		if err := conn.SetReadDeadline(time.Time{}); err != nil {
			return
		}

		line = strings.TrimSuffix(line, "\n")
		method, rest, _ := strings.Cut(line, " ")

		switch method {
		case "query":
			s.handleQuery(conn, rest)
		case "get":
			s.handleGet(conn, rest)
		case "save":
			s.handleSave(conn, reader, rest)
			return
		case "del":
			s.handleDel(rest)
		case "replace":
			s.handleReplace(conn, reader, rest)
			return
		default:
			fmt.Fprintf(conn, "Unknown method: '%s'\n", method)
		}
	}
}

func (s *Server) handleQuery(conn net.Conn, expr string) {
	matches, err := s.db.QueryRecords(expr)
	if err != nil {
		s.log.WithError(err).Debug("query failed")
		fmt.Fprint(conn, "ERROR 0\n")
		return
	}

	fmt.Fprintf(conn, "OK %d\n", len(matches))
	for _, m := range matches {
		tags := s.db.GetTagsForRecord(m.ID)
		fmt.Fprintf(conn, "%s\n%s\n%d\n", m.ID.String(), m.Mime, len(tags))
		for _, tag := range tags {
			fmt.Fprintf(conn, "%s\n", tag)
		}
	}
}

func (s *Server) handleGet(conn net.Conn, rest string) {
	idStr, dimsStr, hasDims := strings.Cut(rest, " ")

	id, err := uuid.FromString(idStr)
	if err != nil {
		fmt.Fprint(conn, "ERROR 0\n")
		return
	}

	var dims *resize.Dimensions
	if hasDims && dimsStr != "" {
		parsed, err := resize.ParseDimensions(dimsStr)
		if err != nil {
			fmt.Fprint(conn, "ERROR 0\n")
			return
		}
		dims = &parsed
	}

	result, err := s.db.FetchRecordByID(id, dims)
	if err != nil {
		if _, ok := err.(*vennbase.ErrNotFound); ok {
			fmt.Fprint(conn, "NOT_FOUND 0\n")
			return
		}
		s.log.WithError(err).Debug("get failed")
		fmt.Fprint(conn, "ERROR 0\n")
		return
	}

	if result.Bytes != nil {
		fmt.Fprintf(conn, "%s %d\n", result.Mime, len(result.Bytes))
		conn.Write(result.Bytes)
		return
	}

	defer result.Reader.Close()
	data, err := io.ReadAll(result.Reader)
	if err != nil {
		s.log.WithError(err).Debug("get: reading record failed")
		fmt.Fprint(conn, "ERROR 0\n")
		return
	}
	fmt.Fprintf(conn, "%s %d\n", result.Mime, len(data))
	conn.Write(data)
}

func (s *Server) handleSave(conn net.Conn, reader *bufio.Reader, rest string) {
	mime, countStr, found := strings.Cut(rest, " ")
	if !found {
		fmt.Fprint(conn, "ERROR 0\n")
		return
	}
	tagCount, err := strconv.Atoi(countStr)
	if err != nil || tagCount < 0 {
		fmt.Fprint(conn, "ERROR 0\n")
		return
	}

	tags := make([]string, 0, tagCount)
	for i := 0; i < tagCount; i++ {
		tagLine, err := reader.ReadString('\n')
		if err != nil {
			// short read: the connection ends mid-body, the database
			// is untouched since nothing has been saved yet.
			return
		}
		tags = append(tags, strings.TrimSuffix(tagLine, "\n"))
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return
	}

	id, err := s.db.SaveRecord(mime, data, tags)
	if err != nil {
		s.log.WithError(err).Debug("save failed")
		fmt.Fprint(conn, "ERROR 0\n")
		return
	}
	fmt.Fprintf(conn, "OK %s\n", id.String())
}

// handleDel implements the reserved "del" method: it stays unreachable
// as a database mutation from the wire protocol, so this only records
// intent via a debug log line.
func (s *Server) handleDel(rest string) {
	s.log.WithField("uuid", rest).Debug("del requested (reserved, no-op on the wire)")
}

// handleReplace implements the reserved "replace" method, draining its
// body without mutating the database, for the same reason as
// handleDel.
func (s *Server) handleReplace(conn net.Conn, reader *bufio.Reader, rest string) {
	s.log.WithField("uuid", rest).Debug("replace requested (reserved, no-op on the wire)")
	io.Copy(io.Discard, reader)
}
