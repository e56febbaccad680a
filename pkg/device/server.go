package device

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/gin-gonic/gin"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/klog/v2"

	"smcgateway/pkg/apis"
	"smcgateway/pkg/apis/response"
	"smcgateway/pkg/generic"
	"smcgateway/pkg/runtime"
)

func InstallHandler(group *gin.RouterGroup, mgr *Manager) {
	group.POST("/devices", createDevice(mgr))
	group.DELETE("/devices/:id", deleteDevice(mgr))
	group.PATCH("/devices/:id", patchDevice(mgr))
	group.PUT("/devices/:id", updateDevice(mgr))
	group.GET("/devices", listDevices(mgr))
	group.GET("/devices/:id", getDevice(mgr))
	group.PUT("/devices/:id/:status", switchDeviceStatus(mgr))
	group.PUT("/devices/:id/action", deliverDeviceAction(mgr))
}

// createDevice sniffs deviceType out of the body first so the full payload can
// be bound to the matching v1 type.
func createDevice(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			klog.V(2).InfoS("Failed to read request body", "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrRequestBody))
			return
		}

		var target struct {
			DeviceType string `json:"deviceType"`
		}
		if err := json.Unmarshal(bodyBytes, &target); err != nil {
			klog.V(2).InfoS("Failed to parse device type", "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}
		newObject, ok := generic.DeviceTypeMap[target.DeviceType]
		if !ok {
			klog.V(2).InfoS("Unsupported device type", "deviceType", target.DeviceType)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrDeviceType))
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		object := newObject()
		if err := c.ShouldBindJSON(object); err != nil {
			klog.V(2).InfoS("Failed to bind device", "deviceType", target.DeviceType, "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}

		d, err := mgr.CreateDevice(object)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.NewMultiError(err))
			return
		}

		c.Header(apis.ETag, d.GetVersion())
		c.Header(apis.Location, fmt.Sprintf("https://%s%s/%s", c.Request.Host, c.Request.RequestURI, d.GetID()))
		c.JSON(http.StatusCreated, d)
	}
}

func deleteDevice(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		eTag := c.GetHeader(apis.IfMatch)
		if len(eTag) == 0 {
			c.Status(http.StatusPreconditionRequired)
			return
		}

		device, err := mgr.DeleteDevice(c.Param("id"), eTag)
		if err != nil {
			switch {
			case os.IsNotExist(err):
				c.Status(http.StatusNotFound)
			case errors.Is(err, apis.ErrMismatch):
				c.Status(http.StatusPreconditionFailed)
			default:
				c.JSON(http.StatusBadRequest, response.NewMultiError(err))
			}
			return
		}
		c.JSON(http.StatusOK, device)
	}
}

func patchDevice(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer c.Request.Body.Close()

		contentType := c.GetHeader("Content-Type")
		// Remove "; charset=" if included in header.
		if idx := strings.Index(contentType, ";"); idx > 0 {
			contentType = contentType[:idx]
		}
		if !patchTypes.Has(contentType) {
			c.Status(http.StatusUnsupportedMediaType)
			return
		}

		eTag := c.GetHeader(apis.IfMatch)
		if len(eTag) == 0 {
			c.Status(http.StatusPreconditionRequired)
			return
		}

		patchBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			klog.V(3).InfoS("Failed to read patch body", "err", err)
			c.Status(http.StatusInternalServerError)
			return
		}

		id := c.Param("id")
		old, err := mgr.GetDeviceById(id, true)
		if err != nil {
			c.Status(http.StatusNotFound)
			return
		}

		versionedJS, err := json.Marshal(old)
		if err != nil {
			klog.V(3).InfoS("Failed to marshal device", "deviceId", id, "err", err)
			c.Status(http.StatusInternalServerError)
			return
		}

		patchedJS, err := applyJSPatch(types.PatchType(contentType), patchBytes, versionedJS)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.NewMultiError(err))
			return
		}

		newObj := generic.DeviceTypeMap[old.GetDeviceType()]()
		if err := json.Unmarshal(patchedJS, newObj); err != nil {
			klog.V(3).InfoS("Failed to decode patched device", "deviceId", id, "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}

		updated, err := mgr.UpdateDeviceById(id, eTag, newObj)
		if err != nil {
			updateErrorStatus(c, err)
			return
		}

		c.Header(apis.ETag, updated.GetVersion())
		c.JSON(http.StatusOK, updated)
	}
}

func updateDevice(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer c.Request.Body.Close()

		eTag := c.GetHeader(apis.IfMatch)
		if len(eTag) == 0 {
			c.Status(http.StatusPreconditionRequired)
			return
		}

		id := c.Param("id")
		old, err := mgr.GetDeviceById(id, true)
		if err != nil {
			c.Status(http.StatusNotFound)
			return
		}

		newObj := generic.DeviceTypeMap[old.GetDeviceType()]()
		if err := json.NewDecoder(c.Request.Body).Decode(newObj); err != nil {
			klog.V(3).InfoS("Failed to decode device", "deviceId", id, "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}

		updated, err := mgr.UpdateDeviceById(id, eTag, newObj)
		if err != nil {
			updateErrorStatus(c, err)
			return
		}

		if updated != nil {
			c.Header(apis.ETag, updated.GetVersion())
		}
		c.JSON(http.StatusOK, updated)
	}
}

func updateErrorStatus(c *gin.Context, err error) {
	switch {
	case os.IsNotExist(err):
		c.Status(http.StatusNotFound)
	case errors.Is(err, apis.ErrMismatch):
		c.Status(http.StatusPreconditionFailed)
	case response.IsResponseError(err):
		c.JSON(http.StatusBadRequest, response.NewMultiError(err))
	default:
		c.Status(http.StatusInternalServerError)
	}
}

func listDevices(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer c.Request.Body.Close()

		query := c.Request.URL.Query()
		exploded := false
		filter := runtime.DeviceFilter{}
		if len(query) > 0 {
			if v := query.Get(apis.Filter); len(v) > 0 {
				if err := json.Unmarshal([]byte(v), &filter); err != nil {
					c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
					return
				}
			}
			exploded, _ = strconv.ParseBool(query.Get("exploded"))
		}
		rds, _ := mgr.ListDevices(&filter, exploded)

		c.JSON(http.StatusOK, &runtime.ResponseModel{Devices: rds})
	}
}

func getDevice(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer c.Request.Body.Close()

		exploded, _ := strconv.ParseBool(c.Query("exploded"))
		rd, err := mgr.GetDeviceById(c.Param("id"), exploded)
		if err != nil {
			if os.IsNotExist(err) {
				c.Status(http.StatusNotFound)
			} else {
				c.Status(http.StatusInternalServerError)
			}
			return
		}

		c.Header(apis.ETag, rd.GetVersion())
		c.JSON(http.StatusOK, rd)
	}
}

// switchDeviceStatus starts, stops or restarts collection on a chain. The
// transition itself is asynchronous, hence 202.
func switchDeviceStatus(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer c.Request.Body.Close()

		if err := mgr.SwitchDeviceStatus(c.Param("id"), c.Param("status")); err != nil {
			if os.IsNotExist(err) {
				c.Status(http.StatusNotFound)
			} else {
				c.JSON(http.StatusBadRequest, response.NewMultiError(err))
			}
			return
		}
		c.Status(http.StatusAccepted)
	}
}

// deliverDeviceAction accepts a list of {variable: value} objects and forwards
// them to the chain's broker, e.g. {"theta.position": 12.5}.
func deliverDeviceAction(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer c.Request.Body.Close()

		id := c.Param("id")
		var actions []map[string]interface{}
		if err := json.NewDecoder(c.Request.Body).Decode(&actions); err != nil {
			klog.V(3).InfoS("Failed to parse actions", "deviceId", id, "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}

		if err := mgr.DeliverAction(id, actions); err != nil {
			c.JSON(http.StatusBadRequest, response.NewMultiError(err))
			return
		}
		c.Status(http.StatusAccepted)
	}
}

func applyJSPatch(patchType types.PatchType, patchBytes, versionedJS []byte) ([]byte, error) {
	switch patchType {
	case types.JSONPatchType:
		patchObj, err := jsonpatch.DecodePatch(patchBytes)
		if err != nil {
			return nil, response.ErrMalformedJSON
		}
		if len(patchObj) > maxJSONPatchOperations {
			klog.V(3).InfoS("Too many json patch operations", "count", len(patchObj))
			return nil, response.ErrTooManyJsonPatchOperations(maxJSONPatchOperations)
		}
		patchedJS, err := patchObj.Apply(versionedJS)
		if err != nil {
			klog.V(3).InfoS("Failed to apply json patch", "err", err)
			return nil, response.ErrMalformedJSON
		}
		return patchedJS, nil
	case types.MergePatchType:
		patchedJS, err := jsonpatch.MergePatch(versionedJS, patchBytes)
		if err != nil {
			klog.V(3).InfoS("Failed to apply json merge patch", "err", err)
			return nil, response.ErrMalformedJSON
		}
		return patchedJS, nil
	default:
		// only here as a safety net - gin filters content-type
		return nil, fmt.Errorf("unknown Content-Type header for patch: %v", patchType)
	}
}
