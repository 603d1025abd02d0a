package identity

import (
	"github.com/gofiber/fiber/v2"
)

type IdentityController struct {
	Service IdentityService
}

func NewIdentityController(service IdentityService) *IdentityController {
	return &IdentityController{Service: service}
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	RoleID   string `json:"role_id"`
}

type updateRoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type assignRoleRequest struct {
	RoleID string `json:"role_id"`
}

// CreateRole godoc
// @Summary Create a role
// @Tags identity
// @Accept json
// @Produce json
// @Param role body Role true "Role"
// @Success 201 {object} Role
// @Failure 400 {object} map[string]string "Invalid request body"
// @Router /api/identity/roles [post]
func (c *IdentityController) CreateRole(ctx *fiber.Ctx) error {
	var role Role
	if err := ctx.BodyParser(&role); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.Service.CreateRole(ctx.UserContext(), &role); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(role)
}

// ListRoles godoc
// @Summary List roles
// @Tags identity
// @Produce json
// @Success 200 {array} Role
// @Router /api/identity/roles [get]
func (c *IdentityController) ListRoles(ctx *fiber.Ctx) error {
	roles, err := c.Service.ListRoles(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(roles)
}

// UpdateRole godoc
// @Summary Rename a role
// @Description Updates name/description; the slug is stable so officer references keep working
// @Tags identity
// @Accept json
// @Produce json
// @Param id path string true "Role ID"
// @Param role body updateRoleRequest true "Role"
// @Success 200 {object} map[string]string "Role updated successfully"
// @Router /api/identity/roles/{id} [put]
func (c *IdentityController) UpdateRole(ctx *fiber.Ctx) error {
	var input updateRoleRequest
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.Service.UpdateRole(ctx.UserContext(), ctx.Params("id"), input.Name, input.Description); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "Role updated successfully"})
}

// DeleteRole godoc
// @Summary Delete a role
// @Description Flows whose officers reference the deleted role become unsatisfiable until recreated
// @Tags identity
// @Produce json
// @Param id path string true "Role ID"
// @Success 200 {object} map[string]string "Role deleted successfully"
// @Router /api/identity/roles/{id} [delete]
func (c *IdentityController) DeleteRole(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteRole(ctx.UserContext(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "Role deleted successfully"})
}

// CreateUser godoc
// @Summary Create a user
// @Tags identity
// @Accept json
// @Produce json
// @Param user body createUserRequest true "User"
// @Success 201 {object} User
// @Router /api/identity/users [post]
func (c *IdentityController) CreateUser(ctx *fiber.Ctx) error {
	var input createUserRequest
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	user := &User{
		Username: input.Username,
		Email:    input.Email,
	}
	if err := c.Service.CreateUser(ctx.UserContext(), user, input.Password); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if input.RoleID != "" {
		if err := c.Service.AssignRole(ctx.UserContext(), user.ID.Hex(), input.RoleID); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}
	return ctx.Status(fiber.StatusCreated).JSON(user)
}

// GetUser godoc
// @Summary Get a user by ID
// @Tags identity
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} User
// @Failure 404 {object} map[string]string "User not found"
// @Router /api/identity/users/{id} [get]
func (c *IdentityController) GetUser(ctx *fiber.Ctx) error {
	user, err := c.Service.GetUser(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if user == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	return ctx.JSON(user)
}

// ListUsers godoc
// @Summary List users
// @Tags identity
// @Produce json
// @Success 200 {array} User
// @Router /api/identity/users [get]
func (c *IdentityController) ListUsers(ctx *fiber.Ctx) error {
	users, err := c.Service.ListUsers(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(users)
}

// AssignRole godoc
// @Summary Assign a role to a user
// @Description Takes effect immediately for all pending flow evaluations
// @Tags identity
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param assignment body assignRoleRequest true "Role assignment"
// @Success 200 {object} map[string]string "Role assigned successfully"
// @Router /api/identity/users/{id}/role [put]
func (c *IdentityController) AssignRole(ctx *fiber.Ctx) error {
	var input assignRoleRequest
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.Service.AssignRole(ctx.UserContext(), ctx.Params("id"), input.RoleID); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "Role assigned successfully"})
}

// DeleteUser godoc
// @Summary Delete a user
// @Description Existing signatures by the user remain on their flows
// @Tags identity
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} map[string]string "User deleted successfully"
// @Router /api/identity/users/{id} [delete]
func (c *IdentityController) DeleteUser(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteUser(ctx.UserContext(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "User deleted successfully"})
}
