package mapper

import (
	"github.com/mediarequest/backend/internal/auth/domain"
	"github.com/mediarequest/backend/internal/auth/service"
	authdto "github.com/mediarequest/backend/internal/auth/service/dto"
	"github.com/mediarequest/backend/internal/common/jwtverify"
)

func ProfileToDTO(profile domain.Profile) authdto.User {
	return authdto.User{
		ID:            string(profile.ID),
		Email:         profile.Email,
		DisplayName:   profile.DisplayName,
		ContactHandle: profile.ContactHandle,
		Role:          string(profile.Role),
	}
}

func RegisterResultToDTO(result service.RegisterResult) authdto.RegisterResponse {
	return authdto.RegisterResponse{
		AccessToken: result.AccessToken,
		User:        ProfileToDTO(result.User),
	}
}

func LoginResultToDTO(result service.LoginResult) authdto.LoginResponse {
	return authdto.LoginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		User:         ProfileToDTO(result.User),
	}
}

func AccessClaimsToVerified(claims service.AccessClaims) jwtverify.Claims {
	return jwtverify.Claims{
		UserID: string(claims.UserID),
		Email:  claims.Email,
		Role:   string(claims.Role),
	}
}

func ClaimsToMeDTO(claims jwtverify.Claims) authdto.MeResponse {
	return authdto.MeResponse{
		ID:    claims.UserID,
		Email: claims.Email,
		Role:  claims.Role,
	}
}
