package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"student-roster-go/db"
	"student-roster-go/models"
	"student-roster-go/web"
)

// Response messages shared with the roster page
const (
	msgNotFound      = "Student not found"
	msgMissingFields = "Missing required fields"
	msgAdded         = "Student added successfully!"
	msgInternal      = "Internal server error"
	notFoundBody     = "404 page not found"
)

// APIHandler holds the dependencies for API handlers
type APIHandler struct {
	Store   db.Store
	Version string
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(store db.Store, version string) *APIHandler {
	return &APIHandler{
		Store:   store,
		Version: version,
	}
}

// SetupRouter builds the gin engine with every route and middleware.
func SetupRouter(h *APIHandler) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), AccessLog(), gin.Recovery())

	router.GET("/", h.Home)
	router.GET("/ping", h.Ping)

	router.GET("/students", h.GetAllStudents)
	router.POST("/students", h.AddStudent)
	router.GET("/students/export", h.ExportStudents)
	router.GET("/student/:id", h.GetStudentByID)

	router.POST("/import/students", h.ImportStudents)

	return router
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

func (h *APIHandler) internalError(c *gin.Context, where string, err error) {
	logrus.WithError(err).WithField("request_id", c.GetString(requestIDKey)).Errorf("Error in %s handler", where)
	fail(c, http.StatusInternalServerError, msgInternal)
}

// Home handles GET /
func (h *APIHandler) Home(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML)
}

// --- Student Handlers ---

// GetAllStudents handles GET /students
func (h *APIHandler) GetAllStudents(c *gin.Context) {
	students, err := h.Store.List(c.Request.Context())
	if err != nil {
		h.internalError(c, "GetAllStudents", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"total_students": len(students),
		"students":       students,
	})
}

// parseID accepts plain decimal digits only. ok is false for anything else;
// an id too large for int is reported as -1, which no student has.
func parseID(raw string) (id int, ok bool) {
	if raw == "" {
		return 0, false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1, true
	}
	return n, true
}

// GetStudentByID handles GET /student/:id. Ids that are not unsigned decimal
// integers are treated as an unmatched route.
func (h *APIHandler) GetStudentByID(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.String(http.StatusNotFound, notFoundBody)
		return
	}

	student, err := h.Store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			fail(c, http.StatusNotFound, msgNotFound)
			return
		}
		h.internalError(c, "GetStudentByID", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "student": student})
}

// AddStudent handles POST /students
func (h *APIHandler) AddStudent(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		fail(c, http.StatusBadRequest, msgMissingFields)
		return
	}
	in, err := models.DecodeNewStudent(body)
	if err != nil {
		logrus.WithError(err).Debug("Rejected student body")
		fail(c, http.StatusBadRequest, msgMissingFields)
		return
	}

	student, err := h.Store.Add(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, db.ErrInvalidInput) {
			fail(c, http.StatusBadRequest, msgMissingFields)
			return
		}
		h.internalError(c, "AddStudent", err)
		return
	}

	logrus.Infof("Added student %d (%s)", student.ID, student.Name)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": msgAdded,
		"student": student,
	})
}

// --- Spreadsheet Handlers ---

// ImportStudents handles POST /import/students
func (h *APIHandler) ImportStudents(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "Error retrieving uploaded file: "+err.Error())
		return
	}
	defer file.Close()

	logrus.Infof("Received file upload: %s", header.Filename)

	res, err := db.ImportStudentsFromExcel(c.Request.Context(), h.Store, file)
	if err != nil {
		if errors.Is(err, db.ErrBadWorkbook) {
			logrus.WithError(err).Warnf("Rejected workbook %s", header.Filename)
			fail(c, http.StatusBadRequest, "Failed to import students: "+err.Error())
			return
		}
		h.internalError(c, "ImportStudents", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "Import successful",
		"imported_count": res.Imported,
		"skipped_count":  res.Skipped,
	})
}

// ExportStudents handles GET /students/export
func (h *APIHandler) ExportStudents(c *gin.Context) {
	var buf bytes.Buffer
	if err := db.ExportStudentsToExcel(c.Request.Context(), h.Store, &buf); err != nil {
		h.internalError(c, "ExportStudents", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="students.xlsx"`)
	c.Data(http.StatusOK, db.ExcelContentType, buf.Bytes())
}

// Ping handles GET /ping and reports whether the store is reachable.
func (h *APIHandler) Ping(c *gin.Context) {
	if err := h.Store.Ping(c.Request.Context()); err != nil {
		logrus.WithError(err).Warn("Store ping failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Store unavailable", "version": h.Version})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Pong!", "version": h.Version})
}
