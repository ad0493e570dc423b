package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"sporty/services"
	"sporty/utils"
)

type NotificationController struct {
	Notifications *services.NotificationService
	Logger        *logrus.Entry
}

func NewNotificationController(notifications *services.NotificationService, logger *logrus.Entry) *NotificationController {
	return &NotificationController{
		Notifications: notifications,
		Logger:        logger.WithField("component", "notification_controller"),
	}
}

type EmailNotificationsRequest struct {
	Enabled *bool `json:"emailNotificationsEnabled" validate:"required"`
}

type PushKeys struct {
	P256dh string `json:"p256dh" validate:"required,max=200"`
	Auth   string `json:"auth" validate:"required,max=200"`
}

type PushSubscribeRequest struct {
	Endpoint string   `json:"endpoint" validate:"required,url,max=1000"`
	Keys     PushKeys `json:"keys"`
}

type PushUnsubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,max=1000"`
}

func (nc *NotificationController) EmailStatus(c *fiber.Ctx) error {
	enabled, err := nc.Notifications.EmailStatus(c.UserContext(), currentUser(c))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"emailNotificationsEnabled": enabled}))
}

func (nc *NotificationController) UpdateEmailStatus(c *fiber.Ctx) error {
	var req EmailNotificationsRequest
	if err := parseBody(c, &req); err != nil {
		return utils.HandleError(c, err)
	}
	if err := nc.Notifications.SetEmailStatus(c.UserContext(), currentUser(c), *req.Enabled); err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"emailNotificationsEnabled": *req.Enabled}))
}

// SendTestEmail queues a test mail; delivery happens in the background.
func (nc *NotificationController) SendTestEmail(c *fiber.Ctx) error {
	if err := nc.Notifications.SendTestEmail(c.UserContext(), currentUser(c)); err != nil {
		return utils.HandleError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"message": "Test email queued",
	})
}

func (nc *NotificationController) Subscribe(c *fiber.Ctx) error {
	var req PushSubscribeRequest
	if err := parseBody(c, &req); err != nil {
		return utils.HandleError(c, err)
	}
	err := nc.Notifications.Subscribe(c.UserContext(), currentUser(c), services.PushSubscriptionInput{
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Subscribed to push notifications",
	})
}

func (nc *NotificationController) Unsubscribe(c *fiber.Ctx) error {
	var req PushUnsubscribeRequest
	if err := parseBody(c, &req); err != nil {
		return utils.HandleError(c, err)
	}
	if err := nc.Notifications.Unsubscribe(c.UserContext(), currentUser(c), req.Endpoint); err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Unsubscribed from push notifications",
	})
}

// PushStatus tells the client whether to offer push and which VAPID key to
// subscribe with.
func (nc *NotificationController) PushStatus(c *fiber.Ctx) error {
	status, err := nc.Notifications.PushStatus(c.UserContext(), currentUser(c))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(status))
}

func (nc *NotificationController) SendTestPush(c *fiber.Ctx) error {
	if err := nc.Notifications.SendTestPush(c.UserContext(), currentUser(c)); err != nil {
		return utils.HandleError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"message": "Test notification queued",
	})
}
