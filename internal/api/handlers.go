package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/annel0/happy-builder/internal/middleware"
	"github.com/annel0/happy-builder/internal/vec"
	"github.com/annel0/happy-builder/internal/world"
	"github.com/annel0/happy-builder/internal/world/block"
	"github.com/gin-gonic/gin"
)

// maxProtocolBody ограничивает тело запроса генерации
const maxProtocolBody = 4 << 10

// SetBlockRequest представляет запрос на правку блока
type SetBlockRequest struct {
	X  int    `json:"x"`
	Y  int    `json:"y"`
	Z  int    `json:"z"`
	ID uint16 `json:"id"`
}

// handleStats возвращает статистику мира и сервера
func (rs *RestServer) handleStats(c *gin.Context) {
	stats := make(map[string]interface{})

	if rs.cfg.World != nil {
		stats["world"] = rs.cfg.World.Stats()
	}
	if rs.cfg.Bus != nil {
		stats["eventbus"] = rs.cfg.Bus.Metrics()
	}

	stats["server"] = rs.sampler.Sample()
	stats["memory_details"] = rs.sampler.Heap()

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data:    stats,
	})
}

// handleServerInfo возвращает информацию о сервере
func (rs *RestServer) handleServerInfo(c *gin.Context) {
	info := struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Status  string `json:"status"`
		ProcessSample
	}{"Happy Builder", "v0.1.0", "running", rs.sampler.Sample()}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Информация о сервере",
		Data:    info,
	})
}

// handlePlayer возвращает снимок состояния игрока
func (rs *RestServer) handlePlayer(c *gin.Context) {
	if rs.cfg.Player == nil {
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: "Игрок не подключён",
		})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Состояние игрока",
		Data:    rs.cfg.Player.Snapshot(),
	})
}

// handleGetBlock возвращает блок по мировым координатам
func (rs *RestServer) handleGetBlock(c *gin.Context) {
	x, errX := strconv.Atoi(c.Query("x"))
	y, errY := strconv.Atoi(c.Query("y"))
	z, errZ := strconv.Atoi(c.Query("z"))
	if errX != nil || errY != nil || errZ != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Параметры x, y, z должны быть целыми числами",
		})
		return
	}

	id := rs.cfg.World.GetBlock(x, y, z)
	key := vec.Vec3{X: x, Y: y, Z: z}.ToChunkCoords()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Блок получен",
		Data: map[string]interface{}{
			"x":     x,
			"y":     y,
			"z":     z,
			"id":    uint16(id),
			"state": rs.cfg.World.ChunkInfo(key.X, key.Z).State,
		},
	})
}

// handleSetBlock меняет блок в загруженном чанке
func (rs *RestServer) handleSetBlock(c *gin.Context) {
	var req SetBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Неверный формат запроса: " + err.Error(),
		})
		return
	}

	id := block.BlockID(req.ID)
	behavior, known := block.Get(id)
	if !known {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: fmt.Sprintf("Неизвестный блок %d", req.ID),
		})
		return
	}
	// Воздух разрешён: так через API ломают блоки
	if id != block.AirBlockID && !behavior.Placeable() {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: fmt.Sprintf("Блок %s нельзя ставить", behavior.Name()),
		})
		return
	}

	if !rs.cfg.World.SetBlock(req.X, req.Y, req.Z, id) {
		c.JSON(http.StatusConflict, GenericResponse{
			Success: false,
			Message: "Чанк не загружен или координаты вне мира",
		})
		return
	}

	if builder, ok := c.Get(middleware.ContextBuilderID); ok {
		rs.logger.Info("Блок (%d,%d,%d) = %d от %v", req.X, req.Y, req.Z, req.ID, builder)
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Блок изменён",
		Data:    req,
	})
}

// chunkParams разбирает :cx и :cz
func chunkParams(c *gin.Context) (int, int, bool) {
	cx, errX := strconv.Atoi(c.Param("cx"))
	cz, errZ := strconv.Atoi(c.Param("cz"))
	if errX != nil || errZ != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Координаты чанка должны быть целыми числами",
		})
		return 0, 0, false
	}
	return cx, cz, true
}

// handleChunkInfo возвращает состояние чанка
func (rs *RestServer) handleChunkInfo(c *gin.Context) {
	cx, cz, ok := chunkParams(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Чанк",
		Data:    rs.cfg.World.ChunkInfo(cx, cz),
	})
}

// handleLoadChunk закрепляет чанк и запрашивает генерацию; ответ не ждёт готовности.
// Закреплённый чанк не выгружается стримером, пока его не отпустят через DELETE.
func (rs *RestServer) handleLoadChunk(c *gin.Context) {
	cx, cz, ok := chunkParams(c)
	if !ok {
		return
	}
	rs.cfg.World.Pin(cx, cz)
	c.JSON(http.StatusAccepted, GenericResponse{
		Success: true,
		Message: "Чанк запрошен",
		Data:    rs.cfg.World.ChunkInfo(cx, cz),
	})
}

// handleReleaseChunk снимает закрепление; чанк вне окна игрока выгрузится на следующем кадре
func (rs *RestServer) handleReleaseChunk(c *gin.Context) {
	cx, cz, ok := chunkParams(c)
	if !ok {
		return
	}
	rs.cfg.World.Unpin(cx, cz)
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Чанк откреплён",
		Data:    rs.cfg.World.ChunkInfo(cx, cz),
	})
}

// handleGenerate отвечает на сообщение протокола генератора синхронно.
// Вход и выход проверяются JSON-схемами протокола.
func (rs *RestServer) handleGenerate(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxProtocolBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Не удалось прочитать тело"})
		return
	}

	req, err := world.ParseGenerateRequest(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Неверное сообщение генерации: " + err.Error(),
		})
		return
	}

	key := req.Key()
	resp := world.GeneratedResponse{
		Type: world.MessageGenerated,
		Payload: world.GeneratedPayload{
			CX:        key.X,
			CZ:        key.Z,
			ChunkData: rs.cfg.World.Generator().Generate(key),
		},
	}

	data, err := json.Marshal(resp)
	if err == nil {
		err = world.ValidateGeneratedResponse(data)
	}
	if err != nil {
		rs.logger.Error("Ответ генератора для %v не прошёл проверку: %v", key, err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: "Внутренняя ошибка генератора"})
		return
	}

	c.Data(http.StatusOK, "application/json", data)
}
